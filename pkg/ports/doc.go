/*
Package ports defines the driven ports (interfaces) of the SQL assistant.

These interfaces decouple the workflow engine from external implementations, allowing
it to run against real databases and language models in production and against
deterministic stand-ins in tests.

# Key Interfaces

  - SQLSynthesizer / AnswerSynthesizer: opaque text-generation capabilities.
  - Provisioner / Introspector / Executor: the ephemeral database lifecycle.
  - UploadStore: where uploaded dumps live.
  - DatasetStore: cache of provisioned datasets, keyed by dump filename.
  - DistributedLocker: cross-replica mutual exclusion per dataset.
*/
package ports
