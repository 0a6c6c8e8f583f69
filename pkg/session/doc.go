/*
Package session serializes work on a dataset across goroutines and replicas.

A dataset's scratch database is shared state: uploading, re-provisioning, asking a
question against it and dropping it must not interleave. Manager hands out a
ref-counted in-process mutex per dataset key and, when configured with a
ports.DistributedLocker, also holds a cluster-wide lease for the same key.
*/
package session
