package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionCacheFailed               = "cache_operation_failed"
	ActionPublishFailed             = "publish_failed"

	ActionCreateRide        = "create_ride"
	ActionGetRide           = "get_ride"
	ActionFareEstimate      = "fare_estimate"
	ActionListAvailable     = "list_available_rides"
	ActionAcceptRide        = "accept_ride"
	ActionAdvanceStatus     = "advance_ride_status"
	ActionCancelRide        = "cancel_ride"
	ActionRecordLocation    = "record_location"
	ActionGetLocation       = "get_location"
	ActionLocationHistory   = "location_history"
	ActionUpdatePayment     = "update_payment_status"
	ActionSettle            = "settle_ride"
	ActionSettlementRetry   = "settlement_retry"
	ActionSettlementSweep   = "settlement_sweep"
	ActionRealtimeSubscribe = "realtime_subscribe"
	ActionRealtimeDispatch  = "realtime_dispatch"
)
