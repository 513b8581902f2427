// Package extproc bridges configured external commands into worker
// processors. Content generation, scoring, and publishing live outside this
// repository; the daemon hands each stage's payload to its configured
// command over stdin and stores the command's JSON stdout as the job
// result. Transient command failures are retried with the shared backoff
// policy before the queue-level retry envelope even comes into play.
package extproc
