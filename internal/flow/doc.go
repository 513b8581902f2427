// Package flow builds and submits the dependency-ordered job tree for a
// full pipeline run. A flow is all-or-nothing: either every stage job exists
// after SchedulePipeline returns or none do.
package flow
