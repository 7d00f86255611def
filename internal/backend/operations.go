package backend

// GraphQL documents sent to the Hasura endpoint.
const (
	getChatsQuery = `query GetChats {
  chats(order_by: {updated_at: desc}) {
    id
    title
    created_at
    updated_at
  }
}`

	createChatMutation = `mutation CreateChat($title: String!) {
  insert_chats_one(object: {title: $title}) {
    id
    title
    created_at
    updated_at
  }
}`

	insertMessageMutation = `mutation InsertMessage($chat_id: uuid!, $content: String!, $is_user: Boolean = true) {
  insert_messages_one(object: {chat_id: $chat_id, content: $content, is_user: $is_user}) {
    id
    content
    is_user
    created_at
  }
}`

	sendMessageAction = `mutation SendMessage($chat_id: uuid!, $content: String!) {
  sendMessage(chat_id: $chat_id, content: $content) {
    success
    message
    bot_response
  }
}`

	subscribeMessages = `subscription SubscribeToMessages($chatId: uuid!) {
  messages(where: {chat_id: {_eq: $chatId}}, order_by: {created_at: asc}) {
    id
    content
    is_user
    created_at
  }
}`
)
