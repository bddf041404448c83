package groupware

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/git-tkc/self-assistant/internal/source"
)

const (
	subjectSelector = "div.notificationRows > div.notificationRow > div.notificationSubject > a"
	rowSelector     = ".notificationRow"
	dateSelector    = ".notificationDate, .date"

	// headerTitle is the column header text rendered as a link ("subject").
	headerTitle = "件名"
)

// ParseNotifications extracts notification rows from the listing markup.
// At most maxItems records are returned; a non-positive maxItems means
// no cap.
func ParseNotifications(
	body string,
	base *url.URL,
	fetchedAt time.Time,
	maxItems int,
) ([]source.GroupwareRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}

	var records []source.GroupwareRecord
	doc.Find(subjectSelector).EachWithBreak(func(i int, link *goquery.Selection) bool {
		if maxItems > 0 && len(records) >= maxItems {
			return false
		}

		title := strings.TrimSpace(link.Text())
		if title == "" || title == headerTitle {
			return true
		}

		href, _ := link.Attr("href")
		date := strings.TrimSpace(
			link.Closest(rowSelector).Find(dateSelector).First().Text(),
		)

		records = append(records, source.GroupwareRecord{
			Index:     i,
			Title:     title,
			Date:      date,
			URL:       ResolveLink(base, href),
			FetchedAt: fetchedAt,
		})
		return true
	})

	return records, nil
}
