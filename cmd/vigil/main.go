// Vigil is a rule-based safety classification and intervention engine for
// conversational AI.
//
// It evaluates user/assistant exchanges against a versioned pattern
// catalog, tracks a risk profile per user, records safety events and
// selects an intervention for every verdict.
//
// Usage:
//
//	# Start the API server with default configuration
//	vigil run
//
//	# Start with a custom configuration file
//	vigil run --config /etc/vigil/vigil.yaml
//
//	# Evaluate a single exchange
//	vigil evaluate interaction --user u-123 --input "..." --output "..."
//
//	# Evaluate recorded sessions
//	vigil evaluate session --file sessions.jsonl
//
//	# Print the safety report
//	vigil report --format json
//
//	# Validate a pattern catalog
//	vigil catalog lint --file catalog.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
