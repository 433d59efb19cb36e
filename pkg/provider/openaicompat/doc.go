// Package openaicompat implements the client side of the OpenAI-compatible
// Chat Completions contract: request serialization, blocking response
// consumption, SSE chunk streaming, and error mapping.
//
// [Client.Complete] performs a single round trip and hands the payload to
// [ConsumeResponse]. [Client.Stream] returns a [Stream] that pulls one SSE
// event per [Stream.Recv] call and folds it through a [StreamConsumer].
package openaicompat
