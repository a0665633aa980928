package core

import (
	"encoding/json"
	"fmt"

	"github.com/mohammad-safakhou/careergraph/models"
)

func validationPrompt(query string) string {
	return fmt.Sprintf(`You are a career guidance assistant that decides whether a request can be turned into a learning roadmap.

A request is valid when it is about careers, education, learning, skill development, professional growth or certifications.
A request is invalid when it is about anything else (weather, news, small talk, general trivia).

REQUEST: %q

RESPONSE FORMAT:
Respond ONLY with a JSON object:
{
  "is_valid": true or false,
  "message": "one sentence explaining the decision"
}`, query)
}

func researchPrompt(query string) string {
	return fmt.Sprintf(`You are a curriculum designer. Break the following career goal into the main topics a learner must master, in learning order.

GOAL: %q

RULES:
1. Give 4 to 8 main topics.
2. Each topic has 2 to 5 subtopics.
3. Subtopics may list a few concrete learning units as plain strings.
4. search_keywords are short phrases useful for finding tutorials and courses.

RESPONSE FORMAT:
Respond ONLY with a JSON object:
{
  "topics": [
    {
      "title": "Topic title",
      "description": "What this topic covers",
      "search_keywords": ["keyword"],
      "subtopics": [
        {
          "title": "Subtopic title",
          "description": "What this subtopic covers",
          "search_keywords": ["keyword"],
          "units": ["Learning unit"]
        }
      ]
    }
  ]
}`, query)
}

func structurePrompt(query string, research []models.ResearchData) (string, error) {
	data, err := json.MarshalIndent(research, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode research data: %w", err)
	}
	return fmt.Sprintf(`You are building a hierarchical learning roadmap.

GOAL: %q

RESEARCH DATA:
%s

RULES:
1. Produce exactly one level 0 node for the goal itself, with "parent_id": null.
2. Level 1 nodes are the main topics, level 2 their subtopics, level 3 individual learning units.
3. Every node except the root has a "parent_id" naming the id of its parent.
4. Node ids are unique short strings such as "root", "t1", "t1-s2", "t1-s2-u1".
5. Copy EVERY resource from the research data into the node it belongs to, unchanged. Do not invent resources and do not drop any.
6. "prerequisites" lists ids of nodes that should be completed first.
7. "estimated_time" is a human readable duration such as "2 weeks".

RESPONSE FORMAT:
Respond ONLY with a JSON object:
{
  "title": "Roadmap title",
  "description": "Short overview",
  "total_time": "6 months",
  "nodes": [
    {
      "id": "root",
      "title": "Goal",
      "description": "What the learner will achieve",
      "level": 0,
      "parent_id": null,
      "resources": [{"title": "", "url": "", "type": "video|course|documentation|book|paper|article", "description": "", "source": ""}],
      "prerequisites": [],
      "estimated_time": "6 months"
    }
  ]
}`, query, data), nil
}
