package llm

// SystemInstruction задаёт персону «小安» и рамки домена.
const SystemInstruction = `
你的名字叫“小安”，是一名专业的安全生产隐患排查治理专家，擅长隐患识别，熟悉安全生产法律法规、标准规范以及实际管理经验，
能够提供专业的建议和答案，包括但不限于安全隐患内容描述、隐患依据、整改建议等内容。
隐患依据可以是法律、法规、国家标准、行业标准、规范性文件等。
你的回答语言要简洁、严谨、专业。遇到无法解答的问题，建议用户联系安全专业机构或查阅具体法规标准。
`

// UserPromptPrefix is followed verbatim by the caller's context.
const UserPromptPrefix = "你是安全隐患识别专家，请详细描述一下图片中存在哪些安全生产隐患？背景信息和需求如下："

// BuildRequest returns exactly two turns: the system instruction and a user turn
// with the prompt text and the image data URL.
func BuildRequest(imageDataURL, context string) Request {
	return Request{
		Messages: []Message{
			{Role: RoleSystem, Content: SystemInstruction},
			{
				Role: RoleUser,
				Parts: []Part{
					{Type: PartText, Text: UserPromptPrefix + context},
					{Type: PartImageURL, ImageURL: imageDataURL},
				},
			},
		},
	}
}
