package command

import (
	"fmt"
	"strings"

	"github.com/bkaraca/dinle/pkg/provider/news"
	"github.com/bkaraca/dinle/pkg/provider/weather"
)

// renderWeather formats a weather report the way the assistant speaks it.
func renderWeather(rep *weather.Report) string {
	return fmt.Sprintf(
		"%s için hava durumu:\n• Sıcaklık: %.1f°C\n• Durum: %s\n• Nem: %%%d\n• Rüzgar Hızı: %.1f m/s",
		rep.Location, rep.Temperature, capitalizeTurkish(rep.Condition), rep.Humidity, rep.WindSpeed,
	)
}

// renderArticles formats articles under the category heading. The detailed
// form adds descriptions and links, used for search results.
func renderArticles(category string, articles []news.Article, detailed bool) string {
	if len(articles) == 0 {
		return "Üzgünüm, hiç haber bulunamadı."
	}

	lines := []string{fmt.Sprintf("\n%s Haberleri:", news.DisplayName(category))}
	for i, a := range articles {
		published := a.PublishedAt.Format("15:04")
		lines = append(lines, fmt.Sprintf("\n%d. %s", i+1, a.Title))
		if detailed {
			if a.Description != "" {
				lines = append(lines, "   "+a.Description)
			}
			lines = append(lines, fmt.Sprintf("   Kaynak: %s - Saat: %s", a.Source, published))
			lines = append(lines, fmt.Sprintf("   Link: %s\n", a.URL))
		} else {
			lines = append(lines, fmt.Sprintf("   Kaynak: %s - Saat: %s", a.Source, published))
		}
	}
	return strings.Join(lines, "\n")
}
