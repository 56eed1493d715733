// Package pipeline implements the incident triage and alert-routing
// pipeline: historical context resolution, pattern analysis, risk
// scoring, routing, brief generation, multi-channel dispatch, and the
// audit trail. The Engine runs the stages in a fixed order; the Service
// owns validation, id assignment, and async dispatch of runs.
package pipeline
