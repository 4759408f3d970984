// Package database provides SQLite connectivity for the media bridge.
//
// The bridge uses a single SQLite file for player-state history. WAL
// mode keeps history reads from blocking behind writes, and the busy
// timeout absorbs lock contention between the API's history queries
// and the sync controllers' inserts. Table creation is owned by the
// packages that store data; this package only manages the connection.
package database
