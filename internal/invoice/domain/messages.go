package domain

import "fmt"

// Severity orders message kinds from informational to fatal.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityNotice
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityNotice:
		return "notice"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Warning and error codes emitted by the completion engine. Stable: operators
// key runbooks on them.
const (
	CodeRateLookupFailed         = 801
	CodeNoCandidateVatTypes      = 802
	CodeStrategyUnresolved       = 803
	CodeCorrectiveLineAdded      = 804
	CodeTotalMismatchUncorrected = 805
	CodeVatTypeIndeterminable    = 806
	CodeVatTypeMaySplit          = 807
	CodeVatTypeMustSplit         = 808
	CodeZeroRateNotAllowed       = 809
	CodeEmptyEmailReplaced       = 810
	CodeLineRateUnresolved       = 811
	CodeLookupRateOutdated       = 812
)

// Message is one diagnostic produced during completion.
type Message struct {
	Code     int      `json:"code"`
	CodeTag  string   `json:"codeTag,omitempty"`
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// MessageCollector is the append-only sink the engine writes diagnostics
// into. Business-rule conditions are collected, never returned as errors.
type MessageCollector struct {
	messages []Message
	severity Severity
}

func NewMessageCollector() *MessageCollector {
	return &MessageCollector{}
}

func (c *MessageCollector) add(sev Severity, code int, tag, format string, args ...any) {
	c.messages = append(c.messages, Message{
		Code:     code,
		CodeTag:  tag,
		Severity: sev,
		Text:     fmt.Sprintf(format, args...),
	})
	if sev > c.severity {
		c.severity = sev
	}
}

// AddInfo records an informational message.
func (c *MessageCollector) AddInfo(code int, tag, format string, args ...any) {
	c.add(SeverityInfo, code, tag, format, args...)
}

// AddNotice records a notice.
func (c *MessageCollector) AddNotice(code int, tag, format string, args ...any) {
	c.add(SeverityNotice, code, tag, format, args...)
}

// AddWarning records a warning.
func (c *MessageCollector) AddWarning(code int, tag, format string, args ...any) {
	c.add(SeverityWarning, code, tag, format, args...)
}

// AddError records an error-severity message. The run still continues;
// best-effort completion is the design goal.
func (c *MessageCollector) AddError(code int, tag, format string, args ...any) {
	c.add(SeverityError, code, tag, format, args...)
}

// Messages returns the collected messages in insertion order.
func (c *MessageCollector) Messages() []Message {
	return c.messages
}

// MaxSeverity returns the highest severity collected so far.
func (c *MessageCollector) MaxSeverity() Severity {
	return c.severity
}

// HasWarnings reports whether any warning-or-worse message was collected.
func (c *MessageCollector) HasWarnings() bool {
	return c.severity >= SeverityWarning
}

// Count returns the number of collected messages.
func (c *MessageCollector) Count() int {
	return len(c.messages)
}
