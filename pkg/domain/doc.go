/*
Package domain contains the core models of the SQL assistant.

It defines the workflow state threaded through the question-answering pipeline, the
typed steps and outcomes of the workflow graph, and the dataset descriptors shared with
the adapters. This package is kept free of I/O and persistence.

# Key Entities

  - WorkflowState: the value threaded through every step of one session.
  - Step / Outcome / Transition: the fixed workflow graph and its typed edges.
  - Schema / DBConfig / Dataset: what an uploaded dump looks like once provisioned.
  - LifecycleHooks: callbacks for observability.
*/
package domain
