// Package services talks to MediaWiki wikis over the action API (api.php).
//
// # Transport
//
// [APIService] sends GET and form-encoded POST requests for one endpoint. Parameters are structs tagged for
// go-querystring (see params.go) and always carry format=json. Responses keep the raw JSON body and every cookie
// the server set, so callers can extend a session. Unreachable endpoints, non-2xx statuses and non-JSON bodies
// wrap [shared.ErrNetwork]. An optional token-bucket limiter spaces requests.
//
// # Sessions
//
// [WikiService.Login] performs the two-step bot-password login and returns a [Session]: the ordered, merged
// cookies of both steps, bound to the endpoint that issued them. Sessions are never shared between endpoints.
//
// # Reading
//
// [WikiService.PageContent] returns a [models.Lookup] that distinguishes a missing page from an existing empty
// one; fetch failures are errors. [WikiService.AllPages] lazily follows apcontinue until the listing is
// exhausted.
//
// # Writing
//
// [WikiService.CSRFToken] refuses the anonymous token, and [WikiService.EditPage] treats anything other than
// edit.result == "Success" as an [*EditError].
//
// # Error Handling
//
// Typed errors unwrap to sentinels from the shared package:
//   - [*APIError] : [shared.ErrAPIRequest]
//   - [*LoginError] : [shared.ErrAuthFailed]
//   - [*EditError] : [shared.ErrEditRejected]
//
// [IsSessionError] tells callers when a cached session must be dropped.
package services
