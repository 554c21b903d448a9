package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoFilePath = errors.New("no file path provided")

type section struct {
	name   string
	indent int
}

// envKey joins the open sections and key into SECTION_SUB_KEY.
func envKey(sections []section, key string) string {
	parts := make([]string, 0, len(sections)+1)
	for _, s := range sections {
		parts = append(parts, s.name)
	}
	parts = append(parts, key)
	return strings.ToUpper(strings.Join(parts, "_"))
}

// LoadYamlFile reads a YAML file and loads variables into the environment
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// sections holds the open section names with their indentation, outermost first.
	var sections []section

	for scanner.Scan() {
		line := scanner.Text()

		// Skip empty lines and comments
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		// Close every section indented at or below this line.
		for len(sections) > 0 && sections[len(sections)-1].indent >= indent {
			sections = sections[:len(sections)-1]
		}

		content := trimmedLine

		// Check if it's a section (ends with colon but not a key-value pair)
		if strings.HasSuffix(content, ":") && !strings.Contains(content, ": ") {
			// This is a new section
			sections = append(sections, section{name: strings.TrimSuffix(content, ":"), indent: indent})
			continue
		}

		// Parse key-value pair
		parts := strings.SplitN(content, ":", 2)
		if len(parts) != 2 {
			continue // Skip malformed lines
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Handle empty values (just "key:")
		if value == "" {
			continue // Skip empty values, they don't represent environment variables
		}

		// Drop inline comments on unquoted values
		if !strings.HasPrefix(value, `"`) && !strings.HasPrefix(value, "'") {
			if idx := strings.Index(value, " #"); idx >= 0 {
				value = strings.TrimSpace(value[:idx])
			}
		}

		// Remove quotes if present
		value = strings.Trim(value, `"'`)

		// Handle environment variable substitution syntax: ${VAR:-default}
		if strings.HasPrefix(value, "${") && strings.Contains(value, ":-") && strings.HasSuffix(value, "}") {
			// Extract the variable name and default value
			inner := value[2 : len(value)-1] // Remove ${ and }
			subParts := strings.SplitN(inner, ":-", 2)
			if len(subParts) == 2 {
				envVarName := strings.TrimSpace(subParts[0])
				defaultValue := strings.TrimSpace(subParts[1])

				// Check if environment variable is already set
				if envValue := os.Getenv(envVarName); envValue != "" {
					value = envValue
				} else {
					value = defaultValue
				}
			}
		}

		// Build the full env var name with prefixes
		fullKey := envKey(sections, key)

		// Set the environment variable only if it's not already set
		if os.Getenv(fullKey) == "" {
			if err := os.Setenv(fullKey, value); err != nil {
				return fmt.Errorf("could not set env var %s: %w", fullKey, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	return nil
}
