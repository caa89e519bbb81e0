package model

import "time"

// AlertSeverity represents the severity level of an alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// AlertSource names the metric stream a rule listens to.
type AlertSource string

const (
	SourceSystem     AlertSource = "system"
	SourceAI         AlertSource = "ai"
	SourceProcessing AlertSource = "processing"
)

// AlertRule fires when Field of a Source snapshot reaches Threshold.
type AlertRule struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Source          AlertSource   `json:"source"`
	Field           string        `json:"field"`
	Threshold       float64       `json:"threshold"`
	Severity        AlertSeverity `json:"severity"`
	Cooldown        Duration      `json:"cooldown"`
	LastTriggeredAt time.Time     `json:"lastTriggeredAt,omitempty"`
	Enabled         bool          `json:"enabled"`
}

// Alert is one fired rule.
type Alert struct {
	ID             string             `json:"id"`
	RuleID         string             `json:"ruleId"`
	Severity       AlertSeverity      `json:"severity"`
	Source         AlertSource        `json:"source"`
	Message        string             `json:"message"`
	Value          float64            `json:"value"`
	Threshold      float64            `json:"threshold"`
	Timestamp      time.Time          `json:"timestamp"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Acknowledged   bool               `json:"acknowledged"`
	AcknowledgedBy string             `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time         `json:"acknowledgedAt,omitempty"`
}

// AlertFilter narrows GetAlerts. Zero values mean "any".
type AlertFilter struct {
	Severity     AlertSeverity
	Source       AlertSource
	Acknowledged *bool
	Since        time.Time
	Limit        int
}
