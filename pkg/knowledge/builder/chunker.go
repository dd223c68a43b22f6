package builder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/barekit/folio/pkg/knowledge"
)

// Draft is a chunk before it has an id and an embedding.
type Draft struct {
	Text     string
	Metadata knowledge.Metadata
}

var whitespace = regexp.MustCompile(`\s+`)

// ChunkContent decomposes c into drafts section by section. The mapping is
// fixed: every section produces a known set of chunks, all stamped with
// timestamp. Drafts come out in document order.
func ChunkContent(c *Content, timestamp string) []Draft {
	var drafts []Draft
	add := func(text, source, category, section string) {
		drafts = append(drafts, Draft{
			Text: text,
			Metadata: knowledge.Metadata{
				Source:    source,
				Category:  category,
				Section:   section,
				Timestamp: timestamp,
			},
		})
	}

	if p := c.Personal; p != nil {
		add(fmt.Sprintf("%s is %s with %s years of experience. Tagline: %s. Location: %s. Email: %s",
			orDefault(p.Name, "The portfolio owner"), article(orDefault(p.Title, "professional")),
			p.ExperienceYears, p.Tagline, p.Location, p.Email),
			"personal", "overview", "intro")
	}

	for _, exp := range c.Experience {
		add(fmt.Sprintf("%s (%s) - %s from %s to %s. Location: %s.",
			exp.Company, exp.Description, exp.Role, exp.StartDate, orDefault(exp.EndDate, "Present"), exp.Location),
			"experience", "work_history", exp.Company)

		for idx, highlight := range exp.Highlights {
			add(fmt.Sprintf("At %s as %s: %s", exp.Company, exp.Role, highlight),
				"experience", "achievements", fmt.Sprintf("%s_highlight_%d", exp.Company, idx))
		}
	}

	for _, project := range c.Projects {
		add(fmt.Sprintf("Project: %s. %s. Technologies used: %s.",
			project.Title, project.ShortDescription, strings.Join(project.Technologies, ", ")),
			"projects", "technical", project.ID)
	}

	if cs := c.CaseStudy; cs != nil {
		add(fmt.Sprintf("Case Study: %s. Impact: %s. Timeline: %s. Role: %s.",
			cs.Title, cs.AtAGlance.Impact, cs.AtAGlance.Timeline, cs.AtAGlance.Role),
			"case_study", "overview", "case_study_summary")
		add("Problem: "+cs.Problem, "case_study", "problem", "case_study_problem")
		add("Solution: "+cs.Solution, "case_study", "solution", "case_study_solution")

		for _, e := range cs.MyRole {
			add(fmt.Sprintf("Role in %s - %s: %s", cs.Title, e.Key, e.Value),
				"case_study", "role_details", "case_study_role_"+e.Key)
		}
		for _, e := range cs.Impact {
			add(fmt.Sprintf("Impact on %s: %s", e.Key, e.Value),
				"case_study", "impact_metrics", "case_study_impact_"+e.Key)
		}
		for idx, learning := range cs.Learnings {
			add(fmt.Sprintf("Key learning from %s: %s", cs.Title, learning),
				"case_study", "learnings", fmt.Sprintf("case_study_learning_%d", idx))
		}
	}

	for _, e := range c.Skills {
		add(fmt.Sprintf("%s skills: %s", e.Value.Category, strings.Join(e.Value.Skills, ", ")),
			"skills", e.Key, "expertise")
	}

	if edu := c.Education; edu != nil {
		add(fmt.Sprintf("Education: %s from %s (%s), %s. Duration: %s - %s.",
			edu.Degree, edu.Institution, edu.ShortName, edu.Location, edu.StartYear, edu.EndYear),
			"education", "academic", "degree")
	}

	for _, e := range c.Certifications {
		for _, item := range e.Value.Items {
			status := "In Progress, expected " + item.Expected
			if item.Status == "Completed" {
				status = "Completed " + item.Date
			}
			add(fmt.Sprintf("Certification: %s from %s. Status: %s.", item.Name, item.Provider, status),
				"certifications", e.Key, certificationSection(item.Name))
		}
	}

	return drafts
}

func certificationSection(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "_")
}

func article(noun string) string {
	if noun == "" {
		return noun
	}
	switch strings.ToLower(noun[:1]) {
	case "a", "e", "i", "o", "u":
		return "an " + noun
	}
	return "a " + noun
}
