// Package grammar holds the fixed operator command table.
package grammar

import (
	"strings"
	"unicode"
)

// Action is the abstract operation a phrase resolves to.
type Action string

const (
	StatusCheck      Action = "STATUS_CHECK"
	IncidentDetails  Action = "INCIDENT_DETAILS"
	Approve          Action = "APPROVE"
	Decline          Action = "DECLINE"
	MonitorOnly      Action = "MONITOR_ONLY"
	DeployBackup     Action = "DEPLOY_BACKUP"
	SendThermal      Action = "SEND_THERMAL"
	ShowDrone        Action = "SHOW_DRONE"
	MarkResolved     Action = "MARK_RESOLVED"
	ExplainRationale Action = "EXPLAIN_AI"
	ZoomIncident     Action = "ZOOM_INCIDENT"
)

// Entry is one row of the command table.
type Entry struct {
	Phrase      string
	Aliases     []string
	Description string
	Action      Action
}

// Table is ordered: the first matching entry wins.
var Table = []Entry{
	{
		Phrase:      "status",
		Aliases:     []string{"what is the status", "system status", "give me status"},
		Description: "Reads current system state",
		Action:      StatusCheck,
	},
	{
		Phrase:      "incident details",
		Aliases:     []string{"tell me about the incident", "what happened", "incident info"},
		Description: "Reads current incident summary",
		Action:      IncidentDetails,
	},
	{
		Phrase:      "approve",
		Aliases:     []string{"confirm", "yes", "go ahead", "execute"},
		Description: "Approves the primary action",
		Action:      Approve,
	},
	{
		Phrase:      "decline",
		Aliases:     []string{"cancel", "no", "dismiss", "reject", "veto"},
		Description: "Cancels/dismisses current alert",
		Action:      Decline,
	},
	{
		Phrase:      "monitor only",
		Aliases:     []string{"keep monitoring", "watch only", "stand down"},
		Description: "Drops the response and keeps watching",
		Action:      MonitorOnly,
	},
	{
		Phrase:      "deploy backup",
		Aliases:     []string{"send backup", "launch backup drone", "deploy additional"},
		Description: "Launches next available drone",
		Action:      DeployBackup,
	},
	{
		Phrase:      "send thermal map",
		Aliases:     []string{"share thermal", "send thermal to crews"},
		Description: "Shares thermal imagery with fire department",
		Action:      SendThermal,
	},
	{
		Phrase:      "show drone",
		Aliases:     []string{"find drone", "locate drone", "zoom to drone"},
		Description: "Zooms to drone location",
		Action:      ShowDrone,
	},
	{
		Phrase:      "mark resolved",
		Aliases:     []string{"incident resolved", "close incident", "all clear"},
		Description: "Closes current incident",
		Action:      MarkResolved,
	},
	{
		Phrase:      "what is the recommendation",
		Aliases:     []string{"why this decision", "explain", "ai recommendation"},
		Description: "AI explains its suggestion",
		Action:      ExplainRationale,
	},
	{
		Phrase:      "zoom to incident",
		Aliases:     []string{"show incident", "go to incident", "center on incident"},
		Description: "Centers map on active incident",
		Action:      ZoomIncident,
	},
}

// Normalize case-folds input, turns punctuation into spaces and collapses
// runs of whitespace. Hyphens survive so drone ids like d-247 stay whole.
func Normalize(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return unicode.ToLower(r)
		}
		return ' '
	}, input)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Resolve returns the first entry matching input. An entry matches when its
// phrase or one of its aliases appears in the normalized input as a
// whole-word sequence.
func Resolve(input string) (Entry, bool) {
	norm := Normalize(input)
	if norm == "" {
		return Entry{}, false
	}
	for _, e := range Table {
		if containsWords(norm, e.Phrase) {
			return e, true
		}
		for _, alias := range e.Aliases {
			if containsWords(norm, alias) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Examples returns the phrases suggested when input is not recognized.
func Examples() []string {
	return []string{"status", "approve", "deploy backup", "zoom to incident"}
}

// containsWords reports whether needle occurs in haystack bounded by spaces
// or the ends of the string. Both arguments must already be normalized.
func containsWords(haystack, needle string) bool {
	padded := " " + haystack + " "
	return strings.Contains(padded, " "+needle+" ")
}
