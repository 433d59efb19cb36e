// Package api defines the value types shared by the runnerchat packages:
// role-tagged chat messages, token usage accounting, and the error taxonomy
// every operation reports through.
//
// The package has zero external dependencies and performs no I/O.
//
// Core types:
//   - [Message]: A role-tagged piece of conversation (system, user, assistant)
//   - [Usage]: Prompt/completion/total token counts of a blocking completion
//   - [APIError]: Structured error carrying an [ErrorType]
package api
