package keactrl

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	keaconfig "isc.org/walledgarden/appcfg/kea"
)

// Default timeout of the requests to the Kea Control Agent.
const DefaultRequestTimeout = 10 * time.Second

// Client of the Kea Control Agent. It is safe for concurrent use.
type Client struct {
	innerClient *resty.Client
	url         string
}

// Creates the client sending the commands to the Kea Control Agent at
// the URL, e.g. http://127.0.0.1:8000/.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	innerClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{
		innerClient: innerClient,
		url:         url,
	}
}

// Sets the credentials used in the basic authentication.
func (c *Client) SetBasicAuth(user, password string) {
	c.innerClient.SetBasicAuth(user, password)
}

// Returns the Kea Control Agent URL.
func (c *Client) GetURL() string {
	return c.url
}

// Sends the command and returns the response of the DHCPv4 daemon.
func (c *Client) SendCommand(ctx context.Context, command *Command) (*Response, error) {
	var responses ResponseList
	response, err := c.innerClient.R().
		SetContext(ctx).
		SetBody(command).
		SetResult(&responses).
		Post(c.url)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot send the %s command to %s", command.Command, c.url)
	}
	if response.IsError() {
		return nil, errors.Errorf("Kea Control Agent at %s returned HTTP status %s", c.url, response.Status())
	}
	if len(responses) == 0 {
		return nil, errors.Errorf("empty response to the %s command from %s", command.Command, c.url)
	}

	log.WithFields(log.Fields{
		"command": command.Command,
		"result":  responses[0].Result,
	}).Trace("Received Kea response")
	return &responses[0], nil
}

// Returns the reservation of the hardware address in the subnet. It
// returns nil if the reservation doesn't exist.
func (c *Client) GetReservation(ctx context.Context, subnetID int64, hwAddress string) (*keaconfig.HostCmdsReservation, error) {
	response, err := c.SendCommand(ctx, NewCommandReservationGet(subnetID, hwAddress))
	if err != nil {
		return nil, err
	}
	switch response.Result {
	case ResponseSuccess:
	case ResponseEmpty:
		return nil, nil
	default:
		return nil, errors.WithStack(KeaError{Result: response.Result, Text: response.Text})
	}
	reservation := &keaconfig.HostCmdsReservation{}
	if err := json.Unmarshal(response.Arguments, reservation); err != nil {
		return nil, errors.Wrapf(err, "invalid reservation of %s returned by Kea", hwAddress)
	}
	return reservation, nil
}

// Adds the reservation. Kea returns a general error if the reservation
// already exists.
func (c *Client) AddReservation(ctx context.Context, reservation *keaconfig.HostCmdsReservation) error {
	response, err := c.SendCommand(ctx, NewCommandReservationAdd(reservation))
	if err != nil {
		return err
	}
	if response.Result != ResponseSuccess {
		return errors.WithStack(KeaError{Result: response.Result, Text: response.Text})
	}
	return nil
}

// Deletes the reservation of the hardware address in the subnet. A
// missing reservation is not an error.
func (c *Client) DeleteReservation(ctx context.Context, subnetID int64, hwAddress string) error {
	response, err := c.SendCommand(ctx, NewCommandReservationDel(subnetID, hwAddress))
	if err != nil {
		return err
	}
	if response.Result != ResponseSuccess && response.Result != ResponseEmpty {
		return errors.WithStack(KeaError{Result: response.Result, Text: response.Text})
	}
	return nil
}
