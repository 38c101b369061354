package savemyexams

// CSS selectors for the site's pages. Class names carry build hashes
// ("styles_table_x1y2"), so most selectors match on prefixes.
const (
	// Members page.
	selGreeting      = `[data-cy="user-greeting"]`
	selSubjectRows   = `main table[class*="styles_table_"] tbody > tr`
	selSubjectName   = `[class^="styles_subjectName_"]`
	selSubjectLevel  = `td:nth-child(2)`
	selSubjectAction = `[class^="styles_rowAction_"]`

	// Subject page.
	selOpenResourceLinks = `div[id^="collapse-"].collapse.show a[class^="ResourceLink_link_"]`
	selAnyResourceLinks  = `div[id^="collapse-"] a[class^="ResourceLink_link_"]`
	selResourceText      = `[class^="ResourceLink_text__"]`

	// Revision notes.
	selOpenFirstTopic = `div[id^='collapse-top-'].show > div > a.link-body-emphasis`
	selAnyFirstTopic  = `div[id^='collapse-top-'] > div > a.link-body-emphasis`
	selNavSections    = `[data-cy^="nav-section-"]`
	selNavTopics      = `[data-cy^="nav-topic-"]`
	selCollapseTitle  = `a[class^="CollapseWithLink_link_"]`
	selChapterLinks   = `div[class*="CollapseWithLink_content__"] a[class*="Navigation_subtopicButton__"]`
	selNotesDownload  = `a[data-cy="notes-download-link"]`

	// Exam questions.
	selQuestionSections = `[class^="TopicQuestionsOverviewPage_listItem__"]`
	selQuestionTitle    = `[class~="link-body-emphasis"]`
	selQuestionCards    = `[class^="TopicQuestionsOverviewPage_cards___"] > li`
	selCardTitle        = `a div p`
	selQuestionDownload = `[data-cy="question-download-button"]`
)
