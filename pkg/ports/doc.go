/*
Package ports defines the driven ports (interfaces) of the weave engine.

These interfaces decouple the controller from the concrete AI providers, I/O
transports and persistence backends it is embedded with.

# Key Interfaces

  - Provider: answers a prompt synchronously (Anthropic, OpenAI, test doubles).
  - Channel: interactive text transport (terminal, socket, pipes, HTTP relay, Redis relay, null).
  - CheckpointStore: persists controller snapshots for stop and resume.
*/
package ports
