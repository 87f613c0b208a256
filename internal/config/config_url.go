// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package config

import (
	"fmt"
	"net/url"
)

// validateHTTPURL checks that rawURL is a bare http(s) base URL: scheme and
// host only, optionally a trailing slash. Credentials are rejected because
// the remote engine URL is logged at startup.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, u.Scheme)
	case u.Host == "":
		return fmt.Errorf("%s host is required", fieldName)
	case u.User != nil:
		return fmt.Errorf("%s must not embed credentials", fieldName)
	case u.Path != "" && u.Path != "/":
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, u.Path)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("%s should not contain a query or fragment", fieldName)
	}
	return nil
}
