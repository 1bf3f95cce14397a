package store

// Package store is the durable record of the entry lifecycle:
//   - todo: FIFO backlog of feed entries awaiting publication
//   - done: ids that will never be processed again
//   - options: the flat options bag persisted alongside the queue
//
// Every mutating call commits before returning (one transaction on
// sqlite, one atomic snapshot on the file driver), so a crash can lose
// at most the in-flight operation and never corrupts committed state.
