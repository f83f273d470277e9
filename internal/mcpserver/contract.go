package mcpserver

const usageURI = "docview://usage"

// UsageGuide describes how LLM consumers should drive the document view.
const UsageGuide = `# Document View Tools

One document is open at a time. Every tool except open_document and
get_usage works on the open document.

## Flow

1. ` + "`open_document`" + ` with a positive integer id. Reopening the id that is
   already open keeps the current history and does not refetch.
2. ` + "`get_summary`" + ` / ` + "`get_content`" + ` read the AI-generated summary or the full text.
   Either may be empty.
3. ` + "`ask_question`" + ` submits one question. Only one question can be in flight;
   a second call while the first is pending is rejected. A successful answer
   becomes entry 0 of the history and every other entry moves down by one.
4. ` + "`get_history`" + ` lists questions newest first with their local time of day
   and date (dd/mm/yyyy). Answers are hidden except for the expanded entry.
5. ` + "`toggle_answer`" + ` expands one entry by index. Toggling the expanded entry
   collapses it; expanding another collapses the previous one.

## Errors

- A non-numeric id is rejected without contacting the service.
- An expired session clears the stored credential. Run ` + "`docview login`" + `
  and open the document again.
- A failed question keeps the history unchanged; ask again.
`
