package llm_test

import (
	"errors"

	"basegraph.app/intake/common/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractJSON", func() {
	DescribeTable("pulls the object out of a model reply",
		func(input, expected string) {
			out, err := llm.ExtractJSON(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(expected))
		},
		Entry("bare object", `{"summary":"x"}`, `{"summary":"x"}`),
		Entry("leading prose", `Here you go: {"summary":"x"}`, `{"summary":"x"}`),
		Entry("code fence", "```json\n{\"summary\":\"x\"}\n```", `{"summary":"x"}`),
		Entry("nested objects", `ok {"a":{"b":1}} done`, `{"a":{"b":1}}`),
	)

	DescribeTable("fails when there is no usable object",
		func(input string) {
			_, err := llm.ExtractJSON(input)
			Expect(errors.Is(err, llm.ErrNoJSON)).To(BeTrue())
		},
		Entry("empty", ""),
		Entry("prose only", "I could not understand the request."),
		Entry("closing brace first", "} nope {"),
		Entry("truncated object", `{"summary": "x"`),
		Entry("two objects side by side", `{"a":1} and {"b":2}`),
	)
})

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(llm.Config{Provider: "mistral", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("defaults to anthropic", func() {
		client, err := llm.New(llm.Config{APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(ContainSubstring("claude"))
	})

	It("honours an explicit model", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "k", Model: "gpt-4.1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4.1"))
	})
})

var _ = Describe("GenerateSchema", func() {
	type answer struct {
		Summary string `json:"summary"`
	}

	It("produces a schema for the type", func() {
		Expect(llm.GenerateSchema[answer]()).NotTo(BeNil())
	})
})
