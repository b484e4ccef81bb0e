// Package cookies imports cookies from browser cookie stores to seed a
// chat session's jar. A session that can reuse the cookies of a browser
// already logged in to the site skips the password login entirely.
//
// Supported stores: Firefox (moz_cookies SQLite), Chrome (cookies
// SQLite, unencrypted values only), and Netscape cookies.txt. Cookie
// values stay in memory and are never logged or written back.
package cookies
