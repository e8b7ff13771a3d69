package research

import (
	"fmt"
	"strings"
)

// decomposePrompt instructs the model to break a query into research
// areas, each carrying distinct search queries. The response must be
// bare JSON; the caller strips fences and parses.
func decomposePrompt(query string) string {
	return fmt.Sprintf(`You are an expert in researching a topic from various angles using google. When presented with a query,
provide a research plan. Please ensure that every google search covers a topic that is different
from other google searches in order to avoid redundant and repetitive information. For any given query,
provide a list of google searches from varying areas and perspectives such that a large breadth of information
is retrieved related to that query in a manner that avoids redundant and repetitive information.

Please provide a JSON response in the following format without any additional text:
{
  "areas": [
    {
      "name": "<Area 1 Name>",
      "purpose": "<Description of the purpose of this area>",
      "google_search_ideas": [
        "<Search Query 1 for this area>",
        "<Search Query 2 for this area>",
        "<Search Query 3 for this area>"
      ]
    }
  ]
}

As you generate the queries, please keep the following characteristics of a good google query in mind:

1. Specific: It includes precise keywords related to the topic. Avoid general or vague terms.
2. Concise: It avoids unnecessary words or phrases. Keep the query short and focused.
3. Descriptive: It uses words that describe the content you want, such as "tutorial", "definition", "examples", "statistics", or "benefits".
4. Keyword-Rich: Includes primary and secondary keywords relevant to the search.
5. Logical Operators (if needed): Uses quotes, plus, minus, or logical operators (AND, OR) to refine results.
6. Use of Natural Language: When appropriate, phrased as a question or in natural language.
7. Exclusion of Irrelevant Terms: Uses a minus sign (-) to exclude unwanted topics.
8. Use of Filters (if applicable): Adds time, location, or file type for precision.

Please only reply in the given JSON format and with nothing else.
"%s"`, query)
}

// followUpPrompt asks for five next-step search queries given a
// researched topic and its content
func followUpPrompt(topic, content string) string {
	return fmt.Sprintf(`You are an expert researcher. The following is the content related to the topic "%s":

"%s"

Based on this content, generate 5 follow-up Google search queries that would logically come next in researching this topic. Provide them in the following JSON format without any additional text:

{
    "google_search":[
        "follow_up_one",
        "follow_up_two",
        "follow_up_three",
        "follow_up_four",
        "follow_up_five"
    ]
}

Please ensure that the output is valid JSON and does not include any additional explanation or text.`, topic, content)
}

// detailQueriesPrompt asks for three deep-dive search queries for a
// highlighted span of node content
func detailQueriesPrompt(nodeContent, highlightedText string) string {
	topic := highlightedText
	if strings.TrimSpace(topic) == "" {
		topic = nodeContent
	}
	return fmt.Sprintf(`Given the following topic: "%s", generate 3 related Google search queries that would help in researching this topic in depth.

The topic was highlighted within this surrounding content, use it to disambiguate the topic:
"%s"

Provide the queries in the following JSON format without any additional text:

{
    "searchQueries": [
        "First search query",
        "Second search query",
        "Third search query"
    ]
}`, topic, nodeContent)
}

// spreadsheetColumnsPrompt asks for a column layout matching a stated
// spreadsheet purpose
func spreadsheetColumnsPrompt(purpose string) string {
	return fmt.Sprintf(`You are an expert spreadsheet designer. Based on the user's purpose for a spreadsheet, design the most suitable spreadsheet structure.

The user's purpose is:
"%s"

Possible column types include:
- Text
- Number
- Currency
- Date d-m-y
- Date m-d-y
- Checkbox
- Select
- Label

For each column, specify:
- id: Unique identifier for the column.
- name: The name of the column.
- description: A brief description of what data the column holds.
- type: The column type (from the possible types above).
- options: For Select and Label types, specify the options available.

Please provide a JSON response in the following format without any additional text:

{
  "columns": [
    {
      "id": "<Unique ID>",
      "name": "<Column Name>",
      "description": "<Column Description>",
      "type": "<Column Type>",
      "options": [ "<Option1>", "<Option2>" ]
    }
  ]
}`, purpose)
}

// extractPrompt is the per-source pass: pull every detail relevant to
// the query out of one source's text, as cited bullet points. A source
// with nothing relevant must answer exactly "Information Not Found".
func extractPrompt(query, title, url, text string) string {
	return fmt.Sprintf(`You are a skilled writer. Using the following source, extract every detail (even the trivial ones) related to: "%s". Include all relevant information. Do not miss any relevant details.

Write your findings in detailed bullet points. Please mention the source in-line using markdown format for each bullet point, e.g. [%s](%s). For the source, use the source name as display.

If the source contains no information relevant to the query, reply with exactly "Information Not Found" and nothing else.

Source:
Title: %s
URL: %s
Content:
%s

Provide the output in Markdown format.`, query, title, url, title, url, text)
}

// synthesizePrompt is the final pass: merge the per-source bullet
// outputs into one answer for the original query
func synthesizePrompt(query, bullets string) string {
	return fmt.Sprintf(`You are a skilled writer. The following are research findings from several sources about: "%s".

%s

Merge these findings into one coherent answer written in prose. Address the query directly; do not define or introduce the topic. Do not restate the same fact more than once even when multiple sources mention it; instead attribute shared facts to all of their sources in-line. Keep every in-line markdown source citation from the findings, e.g. [NYT](https://nytimes.com).

Make the most important parts of the text bold, chosen so that reading only the bolded parts gives a complete summary of the answer.

Provide the output in Markdown format.`, query, bullets)
}

// detailsPrompt is the single-pass variant used for follow-up and
// detail nodes: all sources in one call, bullet-point output.
func detailsPrompt(query, formattedResults string) string {
	return fmt.Sprintf(`You are a skilled writer. Using the following search results, extract every detail (even the trivial ones) related to: "%s". Include all relevant information. Do not miss any relevant details.

Write your findings in 4-5 detailed bullet points.

Please mention all sources in-line using markdown format for each bullet point. For the source, use the source name as display.

Search results:
%s

Provide the output in Markdown format.`, query, formattedResults)
}

// chatSystemMessage is prepended to every chat conversation
const chatSystemMessage = `You are an expert but you are also the user's best friend. If the user comes to you with a task, your job is not to complete the task by yourself but to work with the user as a team. For any task, the first step is always to break it down into smaller subtasks and complete them one by one. Since you are a team player, you do not move on to the next task until you and the user agree with the work done for the current subtask. Your approach is very simple and highly creative.
The first thing you do for any subtask, is to look at the context and brainstorm different ways you can approach the subtask. Your brainstorming process is very natural and its like a conversation as if you are talking to yourself. As you analyse and draw creative connections between different information and concepts in the provided context, you always provide in-line reference to the user using the index [1], for example [3][7]. You do this so that the user can read the points you considered directly
in the context. Remember you are a team player. In the brainstorming phase, you talk about different approaches that can be taken for the subtask, you think about the challenges you identify and discuss them with the user. Simply come up with approaches and challenges and have a brainstorming, open-ended communication with the user by asking them questions and brainstorming together. Do not reply with structured response in the brainstorming part of the subtask, simply reply in text and paragraphs as if you are having an informal discussion.
After discussion, as you and the user agree on a approach, you follow that approach to come up with the first version of that subtask and again you have a conversation with the user on how you think it can be improved and what feedback the user has and how you came up with this response. Again, please provide in-line reference to the context, it is absolutely essential.
You have back and forth conversations and many drafts of the subtasks are considered until you and the user agree on a draft, once you and the user agree you move on to the next subtask and repeat the entire brainstorming process again for this subtask then the first draft and so and so forth. Within this entire conversation, do not hesitate to ask the user questions about any information that you need and to be on the same page.
keep it chill, creative and engaging man!`
