/*
Package ports defines the driven ports (interfaces) of the specfile exporter.

These interfaces decouple the serializer from where documents come from and
where spec files end up, so the same run can be written to a directory, an
in-memory buffer, stdout or Redis.

# Key Interfaces

  - DocumentSource: yields (name, document) pairs until io.EOF.
  - Manager: opens append-mode streams by name and reports the artifacts it created.
  - Stream: an io.Writer that knows how many bytes its artifact already holds.
*/
package ports
