package digest

import (
	"fmt"
	"strings"

	"newspop/internal/core"
)

// SystemPrompt frames the model as a demography researcher writing an
// Italian press review.
const SystemPrompt = `Sei un ricercatore esperto di demografia e politiche familiari.
Il tuo compito è leggere una lista di articoli giornalistici italiani raccolti
automaticamente e produrre una rassegna stampa settimanale in italiano.

Regole:
- Scarta gli articoli non pertinenti (sport, cronaca locale, necrologi, beauty, ecc.)
- Raggruppa gli articoli pertinenti per tema
- Scrivi in stile giornalistico chiaro e preciso
- Cita sempre la fonte e la data tra parentesi
- Il tono deve essere informativo e neutro
- Output: solo il testo Markdown della rassegna, senza commenti aggiuntivi
`

// BuildUserPrompt renders the article list into the generation request,
// truncating each article's text to maxChars characters.
func BuildUserPrompt(articles core.Table, dateFrom, dateTo string, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ecco %d articoli raccolti dal %s al %s.\n", len(articles), dateFrom, dateTo)
	b.WriteString("Scrivi una rassegna stampa settimanale in italiano in formato Markdown.\n")
	fmt.Fprintf(&b, "Titolo: **Fertilità e Calo Demografico — Rassegna Stampa %s / %s**\n", dateFrom, dateTo)
	b.WriteString("\n--- ARTICOLI ---\n\n")

	for i, a := range articles {
		fmt.Fprintf(&b, "### Articolo %d\n", i+1)
		fmt.Fprintf(&b, "**Fonte**: %s  |  **Data**: %s  |  **URL**: %s\n\n", a.Source, a.DateStr, a.URL)
		b.WriteString(truncateRunes(strings.TrimSpace(a.Text()), maxChars))
		b.WriteString("\n\n")
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
