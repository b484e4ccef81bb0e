package chatlib

import (
	"net/http"
	"net/url"

	"golang.org/x/net/html"
)

// Page is the result of a Browser request after redirects settled.
type Page struct {
	// Location is the final URL of the page. For a redirect chain this
	// is the last hop, not the URL the call started with.
	Location *url.URL

	// Response is the raw HTTP response behind the page. Its body has
	// already been consumed into Source.
	Response *http.Response

	// Source is the full response body.
	Source string

	// JSON is the decoded body, present only when the body is valid
	// JSON. Endpoints like ws-auth and the event cursor respond with
	// JSON; HTML pages leave this nil.
	JSON any

	// Doc is the parsed document handle produced by the extractor
	// collaborator. Nil when the body did not parse.
	Doc *html.Node
}
