package ticket

import (
	"fmt"
	"strings"
	"time"

	"fareanomaly-service/internal/domain/entity"
)

// PostText is the generated wall post copy plus the canonical search deep
// link for the offer.
type PostText struct {
	Text string
	Link string
}

// GenText builds the localized post copy for an enriched ticket. Pure
// function of the ticket data and the case table. When a city code has no
// entry in the table, the bare city name is used with a plain preposition.
func GenText(data *entity.TicketData, cases CaseTable) PostText {
	origin := data.Origin()
	destination := data.Destination()

	fromPhrase := "из " + placeName(origin)
	if c, ok := cases[origin.CityCode]; ok && c.Ro != "" {
		fromPhrase = "из " + c.Ro
	}

	toPhrase := "в " + placeName(destination)
	if c, ok := cases[destination.CityCode]; ok && c.Vi != "" {
		toPhrase = c.Vi
	}

	// First word opens the sentence
	fromPhrase = strings.Replace(fromPhrase, "из", "Из", 1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔥 Специальное предложение! %s %s", fromPhrase, toPhrase)

	if len(data.Segments) > 1 {
		tripDays := daysBetween(data.Segments[0].DepartureTimestamp, data.Segments[1].DepartureTimestamp)
		fmt.Fprintf(&sb, " на %d %s", tripDays, plural(tripDays, "день", "дня", "дней"))
	}

	fmt.Fprintf(&sb, " за %d %s", data.Price, currencyWord(data.Price, data.Currency))

	return PostText{
		Text: sb.String(),
		Link: searchLink(data),
	}
}

// searchLink rebuilds the flaut.ru search deep link for the offer, keeping
// the raw token so the original fare can be re-derived on the landing page.
func searchLink(data *entity.TicketData) string {
	out := data.Segments[0]

	link := fmt.Sprintf("https://www.flaut.ru/search/%s%s%s",
		out.Origin.Code,
		dayMonth(out.DepartureTimestamp),
		out.Destination.Code,
	)

	if len(data.Segments) > 1 {
		link += dayMonth(data.Segments[1].DepartureTimestamp)
	}

	return fmt.Sprintf("%s1?t=%s&t_currency=%s&t_original_price=%d", link, data.RawToken, data.Currency, data.Price)
}

func placeName(p entity.Place) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Code
}

func dayMonth(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("0201")
}

func daysBetween(from, to int64) int {
	return int((to - from) / 86400)
}

// plural picks the Russian plural form for n.
func plural(n int, one, few, many string) string {
	n = n % 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 19 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func currencyWord(amount int, currency string) string {
	switch currency {
	case entity.CurrencyUAH:
		return plural(amount, "гривны", "гривны", "гривен")
	case entity.CurrencyKZT:
		return "тенге"
	case entity.CurrencyUSD:
		return plural(amount, "доллара", "доллара", "долларов")
	default:
		return plural(amount, "рубля", "рубля", "рублей")
	}
}
