package token

// Pair is the access/refresh credential pair held by the client.
// An empty string means the token is absent.
type Pair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

func (p Pair) HasAccess() bool {
	return p.Access != ""
}

func (p Pair) HasRefresh() bool {
	return p.Refresh != ""
}

func (p Pair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}
