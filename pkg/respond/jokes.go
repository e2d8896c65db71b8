package respond

// Jokes is the built-in one-liner table.
var Jokes = []string{
	"I told my computer I needed a break, and it said it would go to sleep.",
	"I would tell you a UDP joke, but you might not get it.",
	"There are 10 kinds of people: those who understand binary and those who don't.",
	"I used to play piano by ear, but now I use my hands.",
	"Parallel lines have so much in common. It's a shame they'll never meet.",
	"I'm reading a book about anti-gravity. It's impossible to put down.",
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"I asked the librarian if they had books on paranoia. She whispered, they're right behind you.",
	"My wallet is like an onion. Opening it makes me cry.",
	"The early bird might get the worm, but the second mouse gets the cheese.",
	"I only know 25 letters of the alphabet. I don't know y.",
	"A SQL query walks into a bar, walks up to two tables and asks, can I join you?",
	"I'd tell you a chemistry joke, but I know I wouldn't get a reaction.",
	"Time flies like an arrow. Fruit flies like a banana.",
	"I have a joke about recursion, but first I have a joke about recursion.",
	"Why did the scarecrow win an award? He was outstanding in his field.",
	"My computer beat me at chess, but it was no match for me at kickboxing.",
	"I'm on a seafood diet. I see food and I eat it.",
}
