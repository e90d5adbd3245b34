// SPDX-License-Identifier: MIT

package github

import (
	"net/url"
	"strconv"
	"strings"
)

// LastPage extracts the page number of the rel="last" link of a Link header.
// It returns -1 when the header has no usable last link.
func LastPage(linkHeader string) int {
	for _, link := range strings.Split(linkHeader, ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}

		isLast := false
		for _, p := range parts[1:] {
			if strings.TrimSpace(p) == `rel="last"` {
				isLast = true
				break
			}
		}
		if !isLast {
			continue
		}

		raw := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			return -1
		}
		page, err := strconv.Atoi(u.Query().Get("page"))
		if err != nil {
			return -1
		}
		return page
	}
	return -1
}
