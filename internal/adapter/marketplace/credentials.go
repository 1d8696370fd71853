package marketplace

import (
	"fmt"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

// EbayUserCredentials is the per-account token sent with every eBay call.
type EbayUserCredentials struct {
	Token string
}

func NewEbayUserCredentials(token string) (EbayUserCredentials, error) {
	if token == "" {
		return EbayUserCredentials{}, fmt.Errorf("%w: ebay token must not be empty", domain.ErrValidation)
	}
	return EbayUserCredentials{Token: token}, nil
}

// EbayDeveloperCredentials identify the application to eBay. They are process
// wide and come from configuration.
type EbayDeveloperCredentials struct {
	ClientID     string
	ClientSecret string
}

func (c EbayDeveloperCredentials) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: ebay client id must not be empty", domain.ErrValidation)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%w: ebay client secret must not be empty", domain.ErrValidation)
	}
	return nil
}

// AmazonUserCredentials are the selling partner credentials of one account.
// AccessToken must be a live LWA access token; no refresh exchange is made.
type AmazonUserCredentials struct {
	SellerPartnerID string
	LWAClientID     string
	LWAClientSecret string
	AccessToken     string
}

func NewAmazonUserCredentials(sellerPartnerID, lwaClientID, lwaClientSecret, accessToken string) (AmazonUserCredentials, error) {
	switch {
	case sellerPartnerID == "":
		return AmazonUserCredentials{}, fmt.Errorf("%w: seller_partner_id must not be empty", domain.ErrValidation)
	case lwaClientID == "":
		return AmazonUserCredentials{}, fmt.Errorf("%w: lwa_client_id must not be empty", domain.ErrValidation)
	case lwaClientSecret == "":
		return AmazonUserCredentials{}, fmt.Errorf("%w: lwa_client_secret must not be empty", domain.ErrValidation)
	case accessToken == "":
		return AmazonUserCredentials{}, fmt.Errorf("%w: refresh_token must carry an access token", domain.ErrValidation)
	}
	return AmazonUserCredentials{
		SellerPartnerID: sellerPartnerID,
		LWAClientID:     lwaClientID,
		LWAClientSecret: lwaClientSecret,
		AccessToken:     accessToken,
	}, nil
}
