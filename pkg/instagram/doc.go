// Package instagram holds the site specific knowledge: URLs, cookie names,
// URL shape checks and the locator chains used to find login form fields,
// interstitial prompts and the story ring.
//
// Everything that breaks when the web client's markup drifts lives here.
package instagram
