// Package assistant answers chat messages from a fixed table of canned replies.
package assistant

import "strings"

const DEFAULT_REPLY = "I understand you're asking about your family's safety. " +
	"I can help with location tracking, safety status, emergency alerts, and family insights."

type cannedReply struct {
	phrase string
	reply  string
}

// cannedReplies is checked in order, the first phrase found in the message wins
var cannedReplies = []cannedReply{
	{
		phrase: "where is everyone",
		reply: "Current Family Location Status:\n\n" +
			"You: Home (Verified Safe Zone)\n" +
			"Mom: Market (GPS Confirmed)\n" +
			"Dad: Office (Movement Detected)\n\n" +
			"All family members are within monitored safe zones\n" +
			"Real-time tracking active across all devices",
	},
	{
		phrase: "family status",
		reply: "SafeNest Security Analysis:\n\n" +
			"SYSTEM STATUS: All Clear\n" +
			"Location Monitoring: Active\n" +
			"Device Connectivity: Optimal\n" +
			"Emergency Protocols: Ready\n\n" +
			"Family safety parameters within normal ranges",
	},
	{
		phrase: "show insights",
		reply: "Analytics Dashboard:\n\n" +
			"Home Arrival Patterns: 7:00-7:30 PM (typical)\n" +
			"Battery Monitoring: All devices above safe threshold\n" +
			"Device Health: All family phones responding normally\n" +
			"Safety Score: 98/100 (Excellent)",
	},
	{
		phrase: "emergency",
		reply:  "Emergency protocol activated. All family members and emergency contacts have been notified.",
	},
}

// Reply returns the canned reply for message, matched case-insensitively
func Reply(message string) string {
	lowerMessage := strings.ToLower(message)

	for _, canned := range cannedReplies {
		if strings.Contains(lowerMessage, canned.phrase) {
			return canned.reply
		}
	}

	return DEFAULT_REPLY
}
