package categories

import (
	"strings"

	"github.com/festa-erp/festa/internal/shared"
)

func normalize(c *Category) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	verr := &shared.ValidationError{}
	if c.Code == "" {
		verr.Add("code", "required")
	}
	if c.Name == "" {
		verr.Add("name", "required")
	}
	return verr.OrNil()
}
