package parser

import (
	"slices"
	"testing"
)

const generatedSummary = `---
title: Amelia Earhart - Summary
type: summary
source: https://en.wikipedia.org/wiki/Amelia_Earhart
tags:
  - web2vault
  - summary
  - amelia-earhart
date: 2026-03-01
language: en
---

# Amelia Earhart - Summary

## Early Life

Born in Atchison, Kansas. See [[Kansas|her home state]].

## Aviation Career

First woman to fly solo across the Atlantic. #aviation

` + "```sh\n# not a heading\n```" + `

## Related Notes

- [[Wright Brothers - Summary]]
- [[Lift#Bernoulli]]
`

func TestParse_GeneratedNote(t *testing.T) {
	r, err := Parse([]byte(generatedSummary))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Amelia Earhart - Summary" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Frontmatter["type"] != "summary" {
		t.Errorf("type = %v", r.Frontmatter["type"])
	}
	if want := []string{"web2vault", "summary", "amelia-earhart", "aviation"}; !slices.Equal(r.Tags, want) {
		t.Errorf("tags = %v, want %v", r.Tags, want)
	}
	if want := []string{"Early Life", "Aviation Career"}; !slices.Equal(r.Topics, want) {
		t.Errorf("topics = %v, want %v", r.Topics, want)
	}
	if want := []string{"Kansas", "Wright Brothers - Summary", "Lift"}; !slices.Equal(r.Links, want) {
		t.Errorf("links = %v, want %v", r.Links, want)
	}
	if len(r.Body) == 0 || r.Body[0] != '#' {
		t.Errorf("body should start at the H1, got %q", r.Body[:min(20, len(r.Body))])
	}
}

func TestParse_Titles(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"frontmatter wins over H1", "---\ntitle: FM Title\n---\n# H1 Title\n", "FM Title"},
		{"H1 when no frontmatter", "# Just a heading\nSome text.\n", "Just a heading"},
		{"H1 after text", "some text\n\n# My Heading\nmore", "My Heading"},
		{"blank frontmatter title", "---\ntitle: \"  \"\n---\n# Fallback\n", "Fallback"},
		{"H2 only", "## Section\n", ""},
		{"fenced heading ignored", "```\n# code\n```\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Parse([]byte(tc.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Title != tc.want {
				t.Errorf("title = %q, want %q", r.Title, tc.want)
			}
		})
	}
}

func TestParse_InvalidFrontmatterIsBody(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Body != input {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_TagForms(t *testing.T) {
	cases := map[string][]string{
		"---\ntags: [alpha, beta]\n---\nbody #alpha\n": {"alpha", "beta"},
		"---\ntags: alpha, beta\n---\nbody\n":          {"alpha", "beta"},
		"---\ntags:\n  - \"#alpha\"\n---\n":            {"alpha"},
		"no frontmatter #go/concurrency and #1bad\n":  {"go/concurrency"},
		"heading\n# Title\n":                          nil,
	}
	for input, want := range cases {
		r, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(r.Tags, want) {
			t.Errorf("Parse(%q).Tags = %v, want %v", input, r.Tags, want)
		}
	}
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks("See [[Note A]] and [[Note B|alias]].\nAlso [[Note A]] again, [[Note C#Section]], [[ ]] and [[|alias]].")
	if want := []string{"Note A", "Note B", "Note C"}; !slices.Equal(links, want) {
		t.Errorf("links = %v, want %v", links, want)
	}
}

func TestHeadings_Offsets(t *testing.T) {
	src := []byte("# Real\n\n```sh\n# not a heading\n```\n\n> ## quoted\n\n## Second\n")
	hs := Headings(src)
	if len(hs) != 2 {
		t.Fatalf("len(headings) = %d, want 2: %+v", len(hs), hs)
	}
	if hs[0].Text != "Real" || hs[0].Offset != 0 || hs[0].Level != 1 {
		t.Errorf("first heading = %+v", hs[0])
	}
	want := len("# Real\n\n```sh\n# not a heading\n```\n\n> ## quoted\n\n")
	if hs[1].Offset != want || hs[1].Level != 2 {
		t.Errorf("second heading = %+v, want offset %d", hs[1], want)
	}
}
