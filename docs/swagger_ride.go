package docs

// @title           Ride Dispatch API
// @version         1.0
// @description     Ride dispatch core: fare estimates, ride requests, driver dispatch, the ride lifecycle, live location tracking and payment settlement. Realtime ride channels are served by the realtime-service at /ws/rides/{ride_id}.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
