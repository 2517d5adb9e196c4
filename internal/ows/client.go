package ows

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/owslabs/whatsapp-ows-bridge/internal/config"
	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
)

// Client talks to the OWS remote service: it fetches the group/contact
// directory and the outbound notice feed, and submits captured messages.
// All requests are form-encoded POSTs under HTTP basic auth; any non-2xx
// response is a REMOTE_SERVICE error.
type Client struct {
	cfg  config.OWSConfig
	http *http.Client
	log  *logger.Logger
}

// NewClient creates an OWS client.
func NewClient(cfg config.OWSConfig, log *logger.Logger) *Client {
	transport := http.DefaultTransport
	if cfg.InsecureTLS {
		// Some OWS deployments sit behind self-signed certificates.
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		log: log.Component("ows"),
	}
}

// serviceResponse is the envelope every OWS endpoint replies with. The
// shape of results varies per endpoint, so it stays raw until the caller
// knows what to expect.
type serviceResponse struct {
	Results json.RawMessage `json:"results"`
}

// postForm issues one authenticated form-encoded POST and decodes the
// response envelope.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*serviceResponse, error) {
	creds, err := ReadCredentialsFile(c.cfg.CredentialsFile)
	if err != nil {
		return nil, errors.RemoteService(err, "failed to read OWS credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.RemoteService(err, "failed to build OWS request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.RemoteService(err, "OWS request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.RemoteService(nil,
			fmt.Sprintf("OWS returned %d for %s: %s", resp.StatusCode, endpoint, strings.TrimSpace(string(body))))
	}

	var envelope serviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.RemoteService(err, "malformed OWS response")
	}
	return &envelope, nil
}

// Capture is one captured group message ready for submission to OWS.
type Capture struct {
	Contact     string // "Display Name +1234567890", name optional
	Group       string
	Message     string
	MessageTime string // normalized message timestamp
	CreateTime  string // capture wall-clock time, same layout
	ImageURL    string // optional
}

// SubmitMessage submits one captured message. Failure aborts only this
// submission; the message is never retried.
func (c *Client) SubmitMessage(ctx context.Context, capture Capture) error {
	form := url.Values{
		"whatsapp_contact": {capture.Contact},
		"whatsapp_group":   {capture.Group},
		"whatsapp_message": {capture.Message},
		"message_time":     {capture.MessageTime},
		"create_time":      {capture.CreateTime},
	}
	if capture.ImageURL != "" {
		form.Set("image_url", capture.ImageURL)
	}

	if _, err := c.postForm(ctx, c.cfg.SubmitURL, form); err != nil {
		return err
	}

	c.log.With("group", capture.Group).Infof("Captured message submitted to OWS")
	return nil
}

// VerifyCredentials checks the configured credentials against the OWS
// login endpoint. Callers treat a failure as advisory: the original
// deployment tolerated a broken verify endpoint.
func (c *Client) VerifyCredentials(ctx context.Context) (bool, error) {
	if c.cfg.VerifyURL == "" {
		return true, nil
	}

	envelope, err := c.postForm(ctx, c.cfg.VerifyURL, url.Values{})
	if err != nil {
		return false, err
	}

	var result string
	if err := json.Unmarshal(envelope.Results, &result); err != nil {
		return false, errors.RemoteService(err, "malformed verify response")
	}
	return result == "Login Successful", nil
}
