// Package simerr defines the error kinds the simulation core can raise.
//
// These are concrete types rather than sentinel values so callers can
// extract the structured detail (a cycle path, an offending column name, a
// stream key) with errors.As instead of parsing message text.
package simerr

import "fmt"

// ConfigurationError covers malformed specs, duplicate names, missing
// required keys, and resource-graph problems detected before any simulant
// is created.
type ConfigurationError struct {
	Reason string
	Detail any
}

func (e *ConfigurationError) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("configuration error: %s (%v)", e.Reason, e.Detail)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func NewConfigurationError(reason string, detail any) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Detail: detail}
}

// PopulationError covers view-contract violations, dtype drift, and
// creator-ownership violations against the state table.
type PopulationError struct {
	Reason string
	Column string
}

func (e *PopulationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("population error: %s (column %q)", e.Reason, e.Column)
	}
	return fmt.Sprintf("population error: %s", e.Reason)
}

func NewPopulationError(reason, column string) *PopulationError {
	return &PopulationError{Reason: reason, Column: column}
}

// RandomnessError covers CRN misuse: unregistered key tuples, RESIDUAL_CHOICE
// misuse, malformed weight vectors, duplicate stream registration.
type RandomnessError struct {
	Reason string
	Key    string
}

func (e *RandomnessError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("randomness error: %s (key %q)", e.Reason, e.Key)
	}
	return fmt.Sprintf("randomness error: %s", e.Reason)
}

func NewRandomnessError(reason, key string) *RandomnessError {
	return &RandomnessError{Reason: reason, Key: key}
}

// PluginConfigurationError covers a required plugin being absent or a
// referenced plugin class that cannot be located.
type PluginConfigurationError struct {
	Reason string
	Plugin string
}

func (e *PluginConfigurationError) Error() string {
	return fmt.Sprintf("plugin configuration error: %s (plugin %q)", e.Reason, e.Plugin)
}

func NewPluginConfigurationError(reason, plugin string) *PluginConfigurationError {
	return &PluginConfigurationError{Reason: reason, Plugin: plugin}
}

// FatalRuntimeError covers invariant violations discovered mid-run: dtype
// corruption, a non-monotone clock, or any other condition the run loop
// cannot recover from. Causes the run loop to abort and write a partial
// metadata record.
type FatalRuntimeError struct {
	Reason string
	Cause  error
}

func (e *FatalRuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fatal runtime error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("fatal runtime error: %s", e.Reason)
}

func (e *FatalRuntimeError) Unwrap() error { return e.Cause }

func NewFatalRuntimeError(reason string, cause error) *FatalRuntimeError {
	return &FatalRuntimeError{Reason: reason, Cause: cause}
}
