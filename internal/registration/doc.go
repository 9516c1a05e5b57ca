// Package registration admits devices into the grid directory.
//
// A device announces itself with its full name, alias and declared class;
// the handler upserts it into the SQLite directory (refreshing only the
// transport-observed source address), publishes the identity to the
// in-memory cache before anything else can reference it, builds the
// class-specific response, and finally asks the observation manager to
// open the class resource subscription.
package registration
