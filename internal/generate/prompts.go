package generate

import (
	"fmt"
	"strings"
)

const objectiveVoice = "Write in an objective, third-person, informational register. Do not " +
	"use the first person, refer to the author or their opinions, or adopt the " +
	"perspective of the source. Present everything as standalone documentation."

const bodyOnly = "Output ONLY the markdown body: no YAML frontmatter and no top-level # title heading."

const mathInstructions = "\n\nMath: write formulas in LaTeX using Obsidian delimiters, $...$ inline " +
	"and $$...$$ on separate lines for display equations. Never use \\( \\) or \\[ \\] delimiters, " +
	"and do not wrap math in code blocks."

// withContext appends the shared instructions every system prompt carries:
// math formatting, output language and links to existing vault notes.
func withContext(system string, in Input) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString(mathInstructions)
	if in.Language != "" && in.Language != "English" {
		fmt.Fprintf(&b, "\n\nLanguage: the source is written in %s. Write the notes in %s.", in.Language, in.Language)
	}
	if strings.TrimSpace(in.VaultContext) != "" {
		b.WriteString("\n\nVault links: the vault already contains the notes listed below. " +
			"Where the material relates to one of them, reference it with a [[wikilink]] " +
			"using its exact title. Do not invent links to notes that are not listed.\n\n" +
			"EXISTING VAULT NOTES:\n")
		b.WriteString(in.VaultContext)
	}
	return b.String()
}

func source(content string) string {
	return "SOURCE CONTENT:\n\n" + content
}

func about(title, url string) string {
	return fmt.Sprintf("'%s' (%s)", title, url)
}

// --- reduce ---

func reduceSystemPrompt(in Input) string {
	return withContext("You are merging several partial note sections into one coherent "+
		"document for an Obsidian vault. Your job:\n"+
		"1. Combine every section into a single well-structured document\n"+
		"2. Drop exact duplicates but keep all unique information\n"+
		"3. Make the transitions between sections read naturally\n"+
		"4. Preserve markdown formatting, [[wikilinks]] and the heading hierarchy\n"+
		"5. Keep the depth and detail of each section; do not summarize or shorten\n"+
		"6. "+bodyOnly, in)
}

func reduceUserPrompt(title, combined string) string {
	return fmt.Sprintf("Merge these partial note sections about '%s' into one coherent document. "+
		"Keep ALL unique content from every section and remove only exact duplicates. "+
		"Keep the heading hierarchy and formatting.\n\n%s", title, combined)
}

// --- summary ---

func summarySystemPrompt(in Input) string {
	return withContext("You are an expert note-taker writing detailed study notes for an "+
		"Obsidian vault. Produce a thorough, well-organized summary of the provided web "+
		"content, complete enough that a reader grasps the whole scope of the material "+
		"without visiting the source.\n\n"+objectiveVoice+"\n\n"+bodyOnly, in)
}

func summaryUserPrompt(content, title, url string) string {
	return "Write a detailed summary of the following content from " + about(title, url) + ".\n\n" +
		"Requirements:\n" +
		"- Cover ALL major points of the content\n" +
		"- Organize the summary into logical sections with ## headings\n" +
		"- Give each section several well-developed paragraphs\n" +
		"- Include concrete details, examples and key facts, not vague generalities\n" +
		"- Use clear language suitable for study notes\n" +
		"- Finish with a '## Key Takeaways' section of 8-15 bullet points\n" +
		"- Do NOT include YAML frontmatter or a top-level # title heading\n\n" +
		source(content)
}

// --- deep dive ---

func deepDiveSystemPrompt(in Input) string {
	return withContext("You are an expert educator writing comprehensive, in-depth study "+
		"notes for an Obsidian vault. The notes must work as a standalone study resource.\n\n"+
		objectiveVoice+"\n\n"+bodyOnly+" Use [[wikilinks]] for concepts that deserve "+
		"their own note.", in)
}

func deepDiveUserPrompt(content, title, url string) string {
	return "Write a comprehensive, in-depth study document on " + about(title, url) + ".\n\n" +
		"Requirements:\n" +
		"- Cover EVERY major topic, subtopic and detail of the source\n" +
		"- Use ## headings for major sections and ### for subsections\n" +
		"- Explain each concept with full context, background and connections\n" +
		"- Include specific names, dates, numbers, examples and evidence\n" +
		"- Use [[wikilinks]] for important terms, people and related concepts\n" +
		"- End with a ## Connections & Implications section\n" +
		"- Do NOT include YAML frontmatter or a top-level # title heading\n\n" +
		source(content)
}

func outlineSystemPrompt(in Input) string {
	return withContext("You are an expert educator planning a comprehensive study document. "+
		"Write a DETAILED hierarchical outline naming every major topic, subtopic and key "+
		"point of the source. Each section of the outline will later be expanded into full "+
		"prose.\n\n"+
		"Format the outline with markdown headings:\n"+
		"- ## for major sections\n"+
		"- ### for subsections\n"+
		"- bullet points under each heading listing the points to cover\n\n"+
		"Do NOT write prose, only headings and bullet points.", in)
}

func outlineUserPrompt(content, title, url string) string {
	return "Write a detailed outline for a comprehensive study document about " + about(title, url) + ".\n\n" +
		"Requirements:\n" +
		"- Identify EVERY major topic and subtopic\n" +
		"- Use ## for major sections (4-10 of them) and ### for subsections\n" +
		"- List the key details to cover as bullet points under each heading\n" +
		"- Include background, the main topics, connections between ideas and significance\n" +
		"- Order the sections for someone learning the material\n\n" +
		source(content)
}

func expandSystemPrompt(in Input) string {
	return withContext("You are an expert educator writing one section of a comprehensive "+
		"study document for an Obsidian vault. Write it with full depth so the reader "+
		"understands the topic from this section alone.\n\n"+objectiveVoice+"\n\n"+
		"Rules:\n"+
		"- Write complete prose with full explanations\n"+
		"- Include specific names, dates, numbers and examples\n"+
		"- Use [[wikilinks]] for important terms and concepts\n"+
		"- Organize the section with ### subheadings\n"+
		"- Output ONLY this section, starting with its ## heading\n"+
		"- Do NOT include YAML frontmatter or a top-level # title heading", in)
}

func expandUserPrompt(content, title, url string, s outlineSection, outline string) string {
	return "Write the following section of a comprehensive study document about " + about(title, url) + ".\n\n" +
		"SECTION TO WRITE:\n" + s.heading + "\n" +
		"Key points to cover:\n" + s.points + "\n\n" +
		"FULL DOCUMENT OUTLINE (for context):\n" + outline + "\n\n" +
		"Write this section in full detail using the source material below. Explain, do not summarize.\n\n" +
		source(content)
}

// --- Q&A ---

func qaSystemPrompt(in Input) string {
	return withContext("You are an expert educator writing study question-and-answer pairs "+
		"for an Obsidian vault. Cover every important aspect of the material with detailed, "+
		"educational answers rather than one-liners.\n\n"+objectiveVoice+"\n\n"+bodyOnly+
		" Use [[wikilinks]] in answers for key concepts.", in)
}

func qaUserPrompt(content, title, url string) string {
	return "Write comprehensive question and answer pairs about " + about(title, url) + ".\n\n" +
		"Requirements:\n" +
		"- 25-40 pairs covering ALL major topics and key details\n" +
		"- Mix factual recall, conceptual, analytical and application questions\n" +
		"- Format each pair as:\n" +
		"  **Q: [question]**\n\n" +
		"  A: [answer of 2-5 sentences with explanation]\n\n" +
		"- Group the pairs by topic under ## headings, from foundational to advanced\n" +
		"- Do NOT include YAML frontmatter or a top-level # title heading\n\n" +
		source(content)
}

func qaPlanSystemPrompt(in Input) string {
	return withContext("You are planning a comprehensive Q&A study document. Identify every "+
		"major topic of the source that deserves question-and-answer coverage.\n\n"+
		"Output a numbered list of topics, each followed by 3-8 planned questions:\n\n"+
		"1. **Topic Name**\n"+
		"   - Question about aspect A\n"+
		"   - Question about aspect B\n", in)
}

func qaPlanUserPrompt(content, title, url string) string {
	return "Identify the major topics of " + about(title, url) + " for a comprehensive Q&A study document.\n\n" +
		"List 5-12 distinct topics with 3-8 planned questions each.\n\n" +
		source(content)
}

func qaSectionSystemPrompt(in Input) string {
	return withContext("You are an expert educator writing the Q&A pairs for one topic of a "+
		"study document in an Obsidian vault.\n\n"+objectiveVoice+"\n\n"+
		"Rules:\n"+
		"- Start with a ## heading for the topic\n"+
		"- Write 5-10 detailed pairs formatted as **Q: [question]** followed by a blank line and A: [answer]\n"+
		"- Answers are 2-5 sentences with full explanations\n"+
		"- Use [[wikilinks]] for important concepts\n"+
		"- Do NOT include YAML frontmatter or a top-level # title heading", in)
}

func qaSectionUserPrompt(content, title, url string, t planTopic) string {
	return "Write Q&A pairs for the following topic of " + about(title, url) + ".\n\n" +
		"TOPIC: " + t.name + "\n" +
		"Planned questions:\n" + t.details + "\n\n" +
		"Write 5-10 detailed pairs that cover the topic thoroughly.\n\n" +
		source(content)
}

// --- practice ---

const answerCallout = "  > [!answer]- Click to reveal answer\n" +
	"  > **Answer:** the answer with its explanation\n"

func practiceSystemPrompt(in Input) string {
	return withContext("You are an expert educator writing practice quiz questions for an "+
		"Obsidian vault. Test understanding at several levels (recall, comprehension, "+
		"application and analysis) and hide every answer in a collapsed callout.\n\n"+
		objectiveVoice+"\n\n"+bodyOnly, in)
}

func practiceUserPrompt(content, title, url string) string {
	return "Write a comprehensive set of practice quiz questions about " + about(title, url) + ".\n\n" +
		"Requirements:\n" +
		"- 25-40 questions covering ALL major topics\n" +
		"- Mix multiple choice (options A-D), true/false with explanation, short answer and fill-in-the-blank\n" +
		"- Label each question type in bold, e.g. **Multiple Choice**\n" +
		"- Number the questions sequentially\n" +
		"- Hide answers in Obsidian collapsed callouts:\n" + answerCallout + "\n" +
		"- Group questions by topic under ## headings\n" +
		"- Do NOT include YAML frontmatter or a top-level # title heading\n\n" +
		source(content)
}

func practicePlanSystemPrompt(in Input) string {
	return withContext("You are planning a comprehensive practice quiz. Identify the major "+
		"topics of the source and how many questions of each type to write per topic.\n\n"+
		"Output a numbered list:\n"+
		"1. **Topic Name** (N questions: X multiple choice, Y true/false, Z short answer)\n"+
		"   - Key concept to test A\n"+
		"   - Key concept to test B\n\n"+
		"Aim for 25-40 questions in total.", in)
}

func practicePlanUserPrompt(content, title, url string) string {
	return "Plan a comprehensive practice quiz for " + about(title, url) + ".\n\n" +
		"Identify 5-10 distinct topics with 3-8 questions each.\n\n" +
		source(content)
}

func practiceSectionSystemPrompt(in Input) string {
	return withContext("You are an expert educator writing the practice questions for one "+
		"topic of a quiz in an Obsidian vault.\n\n"+objectiveVoice+"\n\n"+
		"Rules:\n"+
		"- Start with a ## heading for the topic\n"+
		"- Number questions sequentially from the given number\n"+
		"- Label each question type in bold\n"+
		"- Multiple choice has four options (A-D); true/false answers explain why; short answers need 2-3 sentences\n"+
		"- Hide ALL answers in Obsidian collapsed callouts:\n"+answerCallout+"\n"+
		"- Do NOT include YAML frontmatter or a top-level # title heading", in)
}

func practiceSectionUserPrompt(content, title, url string, t planTopic, start int) string {
	return "Write practice quiz questions for the following topic of " + about(title, url) + ".\n\n" +
		"TOPIC: " + t.name + "\n" +
		"Key concepts to test:\n" + t.details + "\n\n" +
		fmt.Sprintf("Start numbering at question %d.\n", start) +
		"Write 4-8 questions of mixed types for this topic.\n\n" +
		source(content)
}
