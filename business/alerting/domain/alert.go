// Package domain contains alert, metrics and price types for the alerting context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/apperror"
)

// AlertKind distinguishes price alerts from system alerts.
type AlertKind string

const (
	KindPrice  AlertKind = "price"
	KindSystem AlertKind = "system"
)

// PriceCondition is the comparator of a price alert.
type PriceCondition string

const (
	Above         PriceCondition = "ABOVE"
	Below         PriceCondition = "BELOW"
	PercentChange PriceCondition = "PERCENT_CHANGE"
)

// PriceObservation is one price update from an external feed.
type PriceObservation struct {
	Token     string          `json:"token"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceAlert fires once when Token's price satisfies Condition against Target.
// For PERCENT_CHANGE, Target is a percentage measured from the first price
// observed after registration.
type PriceAlert struct {
	ID        string
	Token     string
	Condition PriceCondition
	Target    decimal.Decimal
	Callback  func(PriceObservation)
}

// Validate checks the alert can ever be evaluated.
func (a PriceAlert) Validate() error {
	if a.Token == "" {
		return apperror.New(apperror.CodeAlertInvalid, apperror.WithContext("token is required"))
	}
	switch a.Condition {
	case Above, Below:
	case PercentChange:
		if !a.Target.IsPositive() {
			return apperror.New(apperror.CodeAlertInvalid, apperror.WithContext("percent change target must be positive"))
		}
	default:
		return apperror.New(apperror.CodeAlertInvalid, apperror.WithContext("unknown price condition "+string(a.Condition)))
	}
	return nil
}

// Triggered evaluates the condition. baseline is only consulted for
// PERCENT_CHANGE and must be positive.
func (c PriceCondition) Triggered(price, target, baseline decimal.Decimal) bool {
	switch c {
	case Above:
		return price.GreaterThan(target)
	case Below:
		return price.LessThan(target)
	case PercentChange:
		if !baseline.IsPositive() {
			return false
		}
		change := price.Sub(baseline).Abs().Div(baseline).Mul(decimal.NewFromInt(100))
		return change.GreaterThanOrEqual(target.Abs())
	}
	return false
}

// Operator compares a system metric against a threshold.
type Operator string

const (
	GreaterThan    Operator = ">"
	LessThan       Operator = "<"
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
)

// Compare applies the operator. Unknown operators never match.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case GreaterThan:
		return value > threshold
	case LessThan:
		return value < threshold
	case GreaterOrEqual:
		return value >= threshold
	case LessOrEqual:
		return value <= threshold
	}
	return false
}

// SystemAlert fires once when Metric compared with Threshold by Operator holds.
type SystemAlert struct {
	ID        string
	Metric    MetricName
	Operator  Operator
	Threshold float64
	Callback  func(SystemMetrics)
}

// Validate checks the metric and operator are known.
func (a SystemAlert) Validate() error {
	if _, ok := (SystemMetrics{}).Value(a.Metric); !ok {
		return apperror.New(apperror.CodeAlertInvalid, apperror.WithContext("unknown metric "+string(a.Metric)))
	}
	switch a.Operator {
	case GreaterThan, LessThan, GreaterOrEqual, LessOrEqual:
		return nil
	}
	return apperror.New(apperror.CodeAlertInvalid, apperror.WithContext("unknown operator "+string(a.Operator)))
}

// AlertTriggeredEvent is emitted after an alert's callback ran.
type AlertTriggeredEvent struct {
	ID        string            `json:"id"`
	Kind      AlertKind         `json:"kind"`
	Price     *PriceObservation `json:"price,omitempty"`
	Metrics   *SystemMetrics    `json:"metrics,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
