package ahttp

// restart rebuilds this connection's stream from scratch and re-enters
// RESOLVE, sharing rearm with performRedirect per design note §9
// ("restart and redirect share one rearm routine"). It is used only
// for the reuse-retry path (spec.md §4.5): a keep-alive connection
// whose peer silently closed the socket gets exactly one chance to
// reconnect and resend before the failure becomes terminal.
func (c *Connection) restart() {
	c.restarted = true
	c.isReused = false
	c.rearm(nil)
	c.enterResolve()
}

// performRedirect implements spec.md §4.4: on a 301/302/303 response
// with Redirect enabled, follow Location into a fresh request and
// connection, unless the hop count is exhausted, Location is missing,
// or the target repeats a URI already seen on this chain (design note
// §9(b), resolving the open question of how redirect loops are
// detected: identity of the resolved target URI, not merely a count).
func (c *Connection) performRedirect() {
	prevResp := c.resp
	if prevResp.RedirectCount >= c.req.RedirectCount {
		c.setError(stateRedirectExhausted, errRedirectExceed)
		return
	}
	loc := prevResp.Header.Get("Location")
	if loc == "" {
		c.setError(stateRedirectError, errNoLocation)
		return
	}
	target, err := prevResp.Request.URI.Parse(loc)
	if err != nil {
		c.setError(stateRedirectError, err.Error())
		return
	}
	for _, prior := range prevResp.Redirects {
		if prior.Request.URI.String() == target.String() {
			c.setError(stateRedirectError, "redirect loop detected: "+target.String())
			return
		}
	}

	newReq := prevResp.Request.rewriteURI(target)
	if prevResp.StatusCode == 303 && newReq.Method != "GET" && newReq.Method != "HEAD" {
		newReq.Method = "GET"
		newReq.Body = nil
	}

	newResp := newResponse(newReq)
	newResp.RedirectCount = prevResp.RedirectCount + 1

	// Snapshot the chain so far, seeding it with prevResp itself the
	// first time through (spec.md §4.4 step 3), then append newResp so
	// every response in the chain observes its own place in it,
	// matching original_source/crequests/connection.cpp's two
	// redirects.add calls (once for the original response, once for
	// the new one after building it).
	chain := append([]*Response{}, prevResp.Redirects...)
	if len(chain) == 0 {
		chain = append(chain, prevResp)
	}
	newResp.Redirects = append(chain, newResp)
	c.resp = newResp
	c.meter.Counter("ahttp_client_redirects_total", 1)

	c.rearm(newReq)
	c.enterResolve()
}
