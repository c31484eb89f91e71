package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

func GetAccountID(c *fiber.Ctx) string {
	accountID, _ := c.Locals("account_id").(string)
	return accountID
}

// AcceptedLanguages extracts the base language tags from the
// Accept-Language header, region subtags stripped, order preserved.
func AcceptedLanguages(c *fiber.Ctx) []string {
	header := c.Get(fiber.HeaderAcceptLanguage)
	if header == "" {
		return nil
	}

	seen := make(map[string]bool)
	var languages []string
	for _, part := range strings.Split(header, ",") {
		lang := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if lang == "" || lang == "*" {
			continue
		}
		lang = strings.SplitN(lang, "-", 2)[0]
		if !seen[lang] {
			seen[lang] = true
			languages = append(languages, lang)
		}
	}
	return languages
}

// ParseUntil reads the millisecond cursor query parameter; anything
// malformed means "from now".
func ParseUntil(c *fiber.Ctx) time.Time {
	untilString := c.Query("until")
	if untilString == "" {
		return time.Time{}
	}
	millis, err := strconv.ParseInt(untilString, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
