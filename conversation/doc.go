// Package conversation stores branching conversation trees in PostgreSQL.
//
// A conversation is a tree of messages. Each message points at its parent;
// regenerating an answer adds a sibling, so one parent may have several
// branches. The conversation remembers the leaf of the branch being shown,
// and MessagePath walks from that leaf back to the root.
//
//	s := conversation.NewStore(pool)
//	conv, _ := s.Create(ctx, "user-1", "")
//	q, _ := s.AddMessage(ctx, conversation.NewMessage{ConversationID: conv.ID, Type: state.RoleHuman, Content: "hi"})
//	_, _ = s.AddMessage(ctx, conversation.NewMessage{ConversationID: conv.ID, ParentID: q.ID, Type: state.RoleAI, Content: "hello"})
//	path, _ := s.MessagePath(ctx, conv.ID, "")
package conversation
