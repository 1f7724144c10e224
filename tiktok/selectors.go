package tiktok

import "github.com/xpzouying/tiktok-reply-mcp/page"

// 页面相关选择器集中定义，便于统一维护。
// 每组按优先级排列，页面改版时在对应组里追加新策略即可。
var (
	// loginIndicatorSelectors 出现任意一个说明需要登录
	loginIndicatorSelectors = page.Strategies{
		page.XPath("//button[contains(text(), 'Log in')]"),
		page.XPath("//button[contains(text(), 'Se connecter')]"),
		page.XPath("//a[contains(@href, '/login')]"),
		page.XPath("//div[contains(text(), 'Log in to follow')]"),
	}

	titleSelectors = page.Strategies{
		page.XPath("//h1[@data-e2e='video-title']"),
		page.XPath("//h1[contains(@class, 'video-meta-title')]"),
		page.XPath("//h1"),
		page.XPath("//span[@data-e2e='new-desc-span']"),
		page.XPath("//div[@data-e2e='video-desc']//span"),
	}

	hashtagSelectors = page.Strategies{
		page.XPath("//a[@data-e2e='browse-video-hashtag']"),
		page.XPath("//a[contains(@href, '/tag/')]"),
		page.XPath("//strong[contains(text(), '#')]"),
		page.XPath("//strong[contains(@class, 'StrongText') and contains(text(), '#')]"),
	}

	// commentItemSelectors 用于判断评论区是否已经展开
	commentItemSelectors = page.Strategies{
		page.XPath("//div[@data-e2e='comment-item']"),
	}

	// showCommentsSelectors 评论按钮，点击后展开评论区
	showCommentsSelectors = page.Strategies{
		page.XPath("//button[@data-e2e='comment-icon']"),
		page.XPath("//span[@data-e2e='comment-icon']/ancestor::button"),
	}

	commentContainerSelectors = page.Strategies{
		page.XPath("//div[contains(@class, 'DivCommentListContainer')]"),
		page.XPath("//div[@data-e2e='comment-list']"),
	}

	// commentBlockSelectors 单条评论块，相对于评论容器或整个文档
	commentBlockSelectors = page.Strategies{
		page.XPath(".//div[contains(@class, 'DivCommentContentWrapper')]"),
		page.XPath(".//div[@data-e2e='comment-item']"),
		page.XPath(".//div[contains(@class, 'CommentItemContainer')]"),
		page.XPath(".//div[contains(@class, 'comment-item')]"),
	}

	usernameSelectors = page.Strategies{
		page.XPath(".//div[@data-e2e='comment-username-1']//a"),
		page.XPath(".//a[contains(@class, 'username')]"),
		page.XPath(".//span[contains(@class, 'username')]"),
	}

	// displayNameSelectors 拿不到用户名时退而求其次的昵称
	displayNameSelectors = page.Strategies{
		page.XPath(".//p[contains(@class, 'TUXText') and contains(@class, 'weight-medium')]"),
	}

	commentTextSelectors = page.Strategies{
		page.XPath(".//span[@data-e2e='comment-level-1']/p"),
		page.XPath(".//span[@data-e2e='comment-level-1']"),
		page.XPath(".//div[contains(@class, 'comment-text')]"),
		page.XPath(".//p[contains(@class, 'comment-text')]"),
	}

	// replyButtonSelectors 评论块内的回复按钮
	replyButtonSelectors = page.Strategies{
		page.XPath(".//button[@data-e2e='reply-button']"),
		page.XPath(".//span[@aria-label='Reply' and @role='button']"),
		page.XPath(".//span[@aria-label='Répondre' and @role='button']"),
		page.XPath(".//span[contains(text(), 'Reply')]/ancestor::button"),
		page.XPath(".//span[contains(text(), 'Répondre')]/ancestor::button"),
		page.XPath(".//button[contains(@class, 'reply-btn')]"),
	}

	// replyInputSelectors 点击回复后出现的可编辑输入框
	replyInputSelectors = page.Strategies{
		page.XPath("//div[contains(@class, 'public-DraftEditorPlaceholder-inner') and contains(text(), 'Ajouter une réponse')]/following::div[@contenteditable='true'][1]"),
		page.XPath("//div[contains(@class, 'public-DraftEditorPlaceholder-inner') and contains(text(), 'Add a reply')]/following::div[@contenteditable='true'][1]"),
		page.XPath("//div[@data-e2e='comment-input']//div[@contenteditable='true']"),
		page.XPath("//div[@contenteditable='true' and @role='textbox']"),
		page.XPath("//div[contains(@class, 'notranslate') and @contenteditable='true']"),
	}

	// publishButtonSelectors 页面同时存在顶部评论框和行内回复框时会有两个
	publishButtonSelectors = page.Strategies{
		page.XPath("//div[@data-e2e='comment-post' and @role='button' and @aria-disabled='false']"),
	}
)
