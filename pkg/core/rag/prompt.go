// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"strings"

	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

const contextSeparator = "\n\n---\n\n"

const systemInstructions = "You are a helpful assistant that answers questions using the provided context. " +
	"The context contains relevant information from documents and Q&A discussions. " +
	"Your task is to extract and synthesize information from the context to answer the user's question. " +
	"If the context mentions places, recommendations, or answers related to the question, provide that information. " +
	"Be helpful and extract all relevant details from the context, even if they're phrased differently than the question." +
	"If you don't have the information, say: " +
	"'I don't have that information in my knowledge base.'\n\n"

const inlineInstructions = "You are a helpful assistant. Use the following context to answer the user's question. " +
	"The context may contain Q&A discussions, documents, or other relevant information. " +
	"Extract and provide all relevant information from the context that helps answer the question.\n\n"

// FormatContext renders retrieved chunks as labelled blocks.
func FormatContext(chunks []vectorstore.SearchResult) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		var label string
		switch c.Metadata[vectorstore.MetaType] {
		case "qa_pair":
			label = "[Q&A Information]"
		case "question":
			label = "[Question]"
		case "answer":
			label = "[Answer]"
		default:
			src := c.Metadata[vectorstore.MetaSource]
			if src == "" {
				src = "unknown"
			}
			label = "[Document: " + src + "]"
		}
		parts = append(parts, label+"\n"+c.Text)
	}
	return strings.Join(parts, contextSeparator)
}

// FormatPrompt builds the chat messages for query. With useSystemMessage the
// instructions travel as a system message; otherwise everything is sent as a
// single user message.
func FormatPrompt(query string, chunks []vectorstore.SearchResult, useSystemMessage bool) []api.Message {
	ctxText := FormatContext(chunks)
	if useSystemMessage {
		return []api.Message{
			api.SystemMessage(systemInstructions),
			api.UserMessage("Context:\n" + ctxText + "\n\nUser Question: " + query +
				"\n\nProvide a helpful answer based on the context above:"),
		}
	}
	return []api.Message{
		api.UserMessage(inlineInstructions + "Context:\n" + ctxText + "\n\nUser Question: " + query +
			"\n\nAnswer based on the context:"),
	}
}
