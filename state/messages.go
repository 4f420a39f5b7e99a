package state

// Human builds a human message.
func Human(content string, images ...Image) Message {
	return Message{Role: RoleHuman, Content: content, Images: images}
}

// AI builds an ai message.
func AI(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAI, Content: content, ToolCalls: calls}
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ToolResult builds the tool message answering call.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}
