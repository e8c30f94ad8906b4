package sca

import (
	"fmt"

	"github.com/wso2/openbanking-berlin/internal/models"
)

// LinksInput is the validated state the links constructor branches on. It is
// a pure function input; no I/O happens here.
type LinksInput struct {
	// ResourcePath is the request path of the initiation call, e.g.
	// "/v1/consents" or "/v1/payments/sepa-credit-transfers".
	ResourcePath string
	ResourceID   string
	// AuthorisationID is the auto-created authorisation for implicit flows;
	// empty for explicit flows.
	AuthorisationID string
	Explicit        bool
	Decision        *Decision
	// OAuthMetadataEndpoint is the OIDC well-known endpoint advertised for
	// the redirect approach.
	OAuthMetadataEndpoint string
}

// BuildLinks constructs the Berlin `_links` object for an initiation
// response. Branches on {implicit, explicit} x {REDIRECT, DECOUPLED,
// undecided-with-multiple-methods}. self and status are always present.
func BuildLinks(input *LinksInput) *models.Links {
	self := fmt.Sprintf("%s/%s", input.ResourcePath, input.ResourceID)
	links := &models.Links{
		Self:   &models.Href{Href: self},
		Status: &models.Href{Href: self + "/status"},
	}

	multipleMethods := input.Decision != nil && len(input.Decision.Methods) > 1
	redirect := input.Decision != nil && input.Decision.Approach.Name == models.ScaApproachRedirect
	decoupled := input.Decision != nil && input.Decision.Approach.Name == models.ScaApproachDecoupled

	if decoupled {
		// TODO: decoupled-flow link construction is an unresolved upstream
		// requirement; only self/status are emitted until the link shape is
		// confirmed.
		return links
	}

	if input.Explicit {
		authPath := self + "/authorisations"
		if multipleMethods {
			links.StartAuthorisationWithAuthenticationMethodSelection = &models.Href{Href: authPath}
		} else if redirect {
			links.StartAuthorisationWithPsuIdentification = &models.Href{Href: authPath}
		} else {
			links.StartAuthorisation = &models.Href{Href: authPath}
		}
		return links
	}

	if input.AuthorisationID != "" {
		links.ScaStatus = &models.Href{
			Href: fmt.Sprintf("%s/authorisations/%s", self, input.AuthorisationID),
		}
	}
	if redirect {
		links.ScaOAuth = &models.Href{Href: input.OAuthMetadataEndpoint}
	}
	if multipleMethods && input.AuthorisationID != "" {
		links.SelectAuthenticationMethod = &models.Href{
			Href: fmt.Sprintf("%s/authorisations/%s", self, input.AuthorisationID),
		}
	}
	return links
}

// BuildAuthorisationLinks constructs the `_links` object for an explicit
// start-authorisation response. collectionPath is the request path of the
// start-authorisation call, e.g. "/v1/consents/{consentId}/authorisations".
func BuildAuthorisationLinks(collectionPath, authorisationID, oauthEndpoint string, decision *Decision) *models.Links {
	scaStatusPath := fmt.Sprintf("%s/%s", collectionPath, authorisationID)
	links := &models.Links{
		ScaStatus: &models.Href{Href: scaStatusPath},
	}
	if decision != nil && decision.Approach.Name == models.ScaApproachRedirect {
		links.ScaOAuth = &models.Href{Href: oauthEndpoint}
	}
	if decision != nil && len(decision.Methods) > 1 {
		links.SelectAuthenticationMethod = &models.Href{Href: scaStatusPath}
	}
	return links
}
