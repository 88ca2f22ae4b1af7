/*
Package domain contains the core domain models of the weave engine.

It defines the vocabulary shared by the controller, the step handlers and the
adapters: step type constants, the error taxonomy, retry configuration,
lifecycle events and checkpoints. This package is kept pure and free of
external dependencies like I/O or persistence.

# Error Taxonomy

  - ErrProtocolFormat: the document is missing a field or has a value of the wrong type.
  - ErrInputInvalid: unknown step type, malformed limits, exceeded loop/recursion/step bounds.
  - ErrResourceUnavailable: provider timeout, closed or exhausted I/O channel.
  - ErrSystem: local failures such as file writes.
*/
package domain
