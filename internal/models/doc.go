// Package models defines the domain types shared by the tflow client.
//
// The package contains two categories of types:
//
// 1. Wire types: structs decoded from or sent to the transcription backend
//   - [UploadRequest] : one outgoing upload, built per submission and never persisted
//   - [UploadResult] : the processed transcript, summary and metrics for an upload
//   - [SonicDNA] : audio metrics (energy, pace, clarity, duration)
//   - [HistoryItem] : a stored transcription returned by the history endpoint
//   - [DeleteResult] : the body returned by the history delete endpoints
//
// 2. Local entities: records kept by the client itself
//   - [User] : the signed-in identity, if any
//   - [UploadRecord] : the local journal entry for a submission
//
// [UploadRecord] implements the [Model] interface and is stored through a [Repository].
package models
