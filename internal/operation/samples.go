package operation

import "github.com/your-username/appsync-flow-simulator/internal/models"

var samples = map[models.OperationKind]string{
	models.KindQuery: `query GetUser {
  getUser(id: "123") {
    id
    name
    email
    posts {
      id
      title
      content
    }
  }
}`,
	models.KindMutation: `mutation CreatePost {
  createPost(input: {
    title: "My New Post"
    content: "This is the content of my post"
    authorId: "123"
  }) {
    id
    title
    content
    author {
      name
    }
  }
}`,
	models.KindSubscription: `subscription OnCreatePost {
  onCreatePost {
    id
    title
    content
    author {
      id
      name
    }
    createdAt
  }
}`,
}

// Sample returns the example operation loaded into the editor for a kind
func Sample(kind models.OperationKind) string {
	return samples[kind]
}
