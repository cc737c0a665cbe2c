package mcpserver

// GradingGuide tells LLM consumers how to pick a review grade.
const GradingGuide = `# Memora Grading Guide

Each review records one of three grades. Pick the grade that matches how the
answer was recalled, not how hard the question looks.

| quality | grade  | use when                                    |
|---------|--------|---------------------------------------------|
| 1       | hard   | the answer was wrong or not recalled at all |
| 2       | medium | recalled correctly, with noticeable effort  |
| 3       | easy   | recalled instantly and confidently          |

## Effect on the schedule

- **hard** resets the card: it is due again tomorrow, its success streak goes
  back to zero and its ease factor drops by 0.20 (never below 1.30).
- **medium** keeps the streak going but lowers the ease factor by 0.14.
- **easy** keeps the streak going and raises the ease factor by 0.10 (never
  above 2.50).

After a success the next interval is 1 day for the first success in a streak,
6 days for the second, and previous interval x ease factor after that.

A card with five or more consecutive successes counts as mastered in the
statistics. Mastery is informational; the card keeps being scheduled.

## Rules

1. Only 1, 2 or 3 are accepted. Any other value is rejected and the card is
   left unchanged.
2. Review a card once per sitting. Grading the same card twice in a row
   advances it twice.
3. Only cards returned by ` + "`get_due_cards`" + ` need reviewing; reviewing a card
   early is allowed but shortens the benefit of spacing.
`
