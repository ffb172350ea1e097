// Package core holds the gametracker pipeline: cleaning raw extracts,
// loading them idempotently and driving a run end to end.
//
// # Cleaning
//
// [CleanPlayers] and [CleanScores] turn an [extract.Table] into typed rows.
// Cells are converted with the ToPg* helpers; anything missing or
// unparseable becomes NULL (pgtype Valid=false). Row-level problems are
// never errors. They are either corrected in place or the row is dropped,
// and every outcome is counted in [PlayerResult] or [ScoreResult].
//
// Scores are checked against the players accepted by the same run:
//
//	pr := core.CleanPlayers(players)
//	sr := core.CleanScores(scores, pr.AcceptedIDs())
//
// # Loading
//
// [Upserter] writes a batch with one INSERT ... ON CONFLICT statement, or,
// from CopyThreshold rows on, with COPY into a temporary table merged under
// the same conflict rules. Replaying a batch changes nothing. Upserter
// never commits; the caller's transaction decides.
//
// # Running
//
// [Service.Run] reads both extracts, then loads players and scores inside
// one [session.Manager] scope, then calls the [Reporter]. Failures come
// back as [*StageError] and [Diagnose] maps them to an operator message.
package core
