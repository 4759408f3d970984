// Package profile resolves which capabilities a device instance supports.
//
// The capability surface of SmartThings media devices is heterogeneous:
// one model exposes audioVolume and mediaInputSource, another only switch
// and mediaPlayback. A Profile pins that set down once per attach so the
// rest of the bridge can answer "supported or not" without guessing, and
// so the answer cannot change mid-session.
package profile
