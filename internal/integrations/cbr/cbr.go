package cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const (
	keyRateAction = "http://web.cbr.ru/KeyRate"
	dateLayout    = "2006-01-02"
	lookback      = 30 // days
)

const keyRateEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
  <soap12:Body>
    <KeyRate xmlns="http://web.cbr.ru/">
      <fromDate>%s</fromDate>
      <ToDate>%s</ToDate>
    </KeyRate>
  </soap12:Body>
</soap12:Envelope>`

// Client reads the Central Bank key rate from its DailyInfo SOAP service
type Client struct {
	endpoint string
	http     *http.Client
	log      *logrus.Logger
	now      func() time.Time
}

// NewClient creates a key rate client for the DailyInfo endpoint
func NewClient(endpoint string, log *logrus.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
		now:      time.Now,
	}
}

// GetKeyRate returns the most recent key rate in percent
func (c *Client) GetKeyRate(ctx context.Context) (float64, error) {
	to := c.now()
	envelope := fmt.Sprintf(keyRateEnvelope, to.AddDate(0, 0, -lookback).Format(dateLayout), to.Format(dateLayout))

	body, err := c.call(ctx, envelope)
	if err != nil {
		return 0, err
	}
	rate, err := latestRate(body)
	if err != nil {
		return 0, err
	}
	c.log.WithField("key_rate", rate).Info("Key rate refreshed")
	return rate, nil
}

func (c *Client) call(ctx context.Context, envelope string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", keyRateAction)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Key rate response: %d bytes", len(body))
	return body, nil
}

// latestRate reads the first KR row; the service lists the newest date first
func latestRate(body []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	rows := doc.FindElements("//diffgram/KeyRate/KR")
	if len(rows) == 0 {
		return 0, fmt.Errorf("no key rate data found in XML")
	}
	el := rows[0].SelectElement("Rate")
	if el == nil {
		return 0, fmt.Errorf("rate element not found in XML")
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(el.Text()), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rate: %w", err)
	}
	return rate, nil
}
