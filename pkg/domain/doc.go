/*
Package domain contains the document model consumed by the specfile exporter.

It mirrors the subset of the acquisition "event model" that the spec file
format can express. The documents themselves are produced elsewhere; this
package only names them, decodes them from loosely typed maps, and defines the
errors and lifecycle hooks shared by the rest of the module. It is kept free of
I/O.

# Key Entities

  - Document: a raw (name, body) pair as yielded by a data source.
  - RunStart / RunStop: the metadata that opens and closes a run.
  - Descriptor: describes one event stream ("primary", "baseline", ...).
  - Event / EventPage: readings, row-wise or columnar.
  - LifecycleHooks: optional callbacks used for logging and metrics.
*/
package domain
