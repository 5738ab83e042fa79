// Package models defines domain entities and persistence interfaces for the jukebox service.
//
// The package contains two categories of types:
//
// 1. Transient values: per-login state and projections of streaming service data
//   - [Session] : OAuth credentials for one authenticated user, held in memory only
//   - [Playlist] : Playlist metadata fetched on demand
//   - [Track] : Playable track with artist names and queueable URI
//   - [Device] : Connected playback device
//   - [QueueRequest] : A request to append one track to the playback queue
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [User] : Jukebox accounts keyed by Spotify profile ID
//   - [QueueEntry] : History of tracks pushed onto the playback queue
//   - [PlaylistSelection] : The playlist a user last browsed
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
