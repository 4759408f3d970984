// Package intent defines user intents and their translation into
// capability commands.
//
// An Intent is what the host runtime asks for ("set volume to 40");
// Translate turns it into the ordered capability command invocations the
// device understands, resolving relative steps against observed state and
// rejecting anything the device profile cannot serve before the transport
// is ever involved.
package intent
