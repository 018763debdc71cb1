package wsconn

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type (
	// OpenConnectionParams is what a transport needs to perform one handshake.
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	// OpenConnectionParamsGetter resolves handshake parameters for address. It is
	// invoked once per handshake, so it may mint short-lived tokens.
	OpenConnectionParamsGetter func(ctx context.Context, address string) (OpenConnectionParams, error)

	OpenConnectionParamsRepo struct {
		logger Logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
	address string,
) (params OpenConnectionParams, err error) {
	params, err = r.getter(ctx, address)
	if err != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	if logger == nil {
		logger = NopLogger()
	}
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// NewStaticOpenConnectionParamsRepo parses the address as-is and attaches a
// copy of header to every handshake.
func NewStaticOpenConnectionParamsRepo(logger Logger, header http.Header) OpenConnectionParamsRepo {
	return NewOpenConnectionParamsRepo(logger, func(_ context.Context, address string) (OpenConnectionParams, error) {
		u, err := parseAddress(address)
		if err != nil {
			return OpenConnectionParams{}, err
		}
		return OpenConnectionParams{URL: *u, Header: header.Clone()}, nil
	})
}

func parseAddress(address string) (*url.URL, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, errors.Wrapf(ErrCannotConnect, "invalid address %q: %s", address, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, errors.Wrapf(ErrCannotConnect, "unsupported scheme %q in %q", u.Scheme, address)
	}
	if u.Host == "" {
		return nil, errors.Wrapf(ErrCannotConnect, "missing host in %q", address)
	}
	return u, nil
}
