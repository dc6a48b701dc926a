package ai

import (
	"fmt"
	"strings"

	"github.com/shanehull/annrelay/internal/types"
)

const systemInstruction = `
# [INSTRUCTION]

You are a markets desk editor writing push alerts for retail investors who trade Indian equities on a paper trading platform.

Your task is to read a stock exchange announcement (either a structured BSE filing record or free text) and rewrite it as a short, accurate alert.

---

# [SEVERITY]

Classify the announcement into exactly one severity:

- **critical:** Insider trading disclosures, SAST (Substantial Acquisition of Shares and Takeovers) filings, regulatory violations, penalties, trading suspensions, defaults.
- **high:** Financial results, acquisitions, mergers, demergers, fund raising, credit rating changes, large orders or contracts.
- **medium:** AGM/EGM notices, dividends, record dates, bonus issues, stock splits, board meeting intimations.
- **low:** Clarifications on news items, routine updates, change of address, compliance certificates.
- **info:** Anything else.

---

# [CRITICAL INSTRUCTION]

- The title MUST be at most 80 characters and name the company when it is known.
- The summary MUST be at most 200 characters and contain any concrete number, date or amount present in the text.
- Do not invent facts. If the text is vague, say so plainly.
- Do not include URLs, hashtags or emojis.
- Tickers are exchange symbols only (for example RELIANCE, TCS, 500325).
`

var userPromptTemplate = `
Rewrite the following %s as an investor alert:
--
%s
---
%s`

func buildUserPrompt(text string, rec types.FilingRecord, structured bool) string {
	if !structured {
		return fmt.Sprintf(userPromptTemplate, "announcement text", text, "")
	}

	var fields []string
	add := func(label, value string) {
		if value != "" {
			fields = append(fields, fmt.Sprintf("%s: %s", label, value))
		}
	}
	add("Stock code", rec.StockCode)
	add("Company", rec.CompanyName)
	add("Filing type", rec.FilingType)
	add("Subject", rec.Subject)
	add("Filed at", rec.Timestamp)

	return fmt.Sprintf(userPromptTemplate,
		"BSE filing record",
		strings.Join(fields, "\n"),
		"The full filing document is not available; base the alert on the fields above only.\n",
	)
}

const loadingStepsInstruction = `
You write the progress messages shown while a trading dashboard prepares an analysis.
Return between 4 and 6 short steps, each at most 60 characters, written in the present continuous tense ("Fetching ...", "Comparing ...").
Steps must be specific to the topic and must not promise results.
`

var defaultLoadingSteps = []string{
	"Fetching the latest market data",
	"Normalizing provider responses",
	"Crunching the numbers",
	"Preparing your dashboard",
}
