package corpus

import (
	"fmt"
	"strings"

	"github.com/bench-hub/bench-hub/pkg/api"
)

func multipleChoicePrompt(question string, choices []string) string {
	return fmt.Sprintf("%s\nChoices: %s\nAnswer:", question, strings.Join(choices, ", "))
}

func choiceABPrompt(context string, correct string, wrong string) string {
	return fmt.Sprintf("%s\n\nWhich is more likely:\nA) %s\nB) %s\n\nAnswer with A or B:", context, correct, wrong)
}

func mc(question string, answer string, choices ...string) api.Question {
	return api.Question{
		Prompt:   multipleChoicePrompt(question, choices),
		Expected: answer,
		Choices:  choices,
	}
}

var mmluQuestions = []api.Question{
	mc("What is the powerhouse of the cell?", "Mitochondria",
		"Nucleus", "Mitochondria", "Ribosome", "Chloroplast"),
	mc("Who wrote 'Romeo and Juliet'?", "William Shakespeare",
		"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"),
	mc("What is the capital of France?", "Paris",
		"London", "Berlin", "Paris", "Madrid"),
	mc("Which planet is known as the Red Planet?", "Mars",
		"Venus", "Jupiter", "Mars", "Saturn"),
	mc("What gas do plants absorb from the atmosphere?", "Carbon dioxide",
		"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"),
	mc("In what year did World War 2 end?", "1945",
		"1939", "1942", "1945", "1950"),
	mc("What is the largest ocean on Earth?", "Pacific",
		"Atlantic", "Indian", "Arctic", "Pacific"),
	mc("Which element has the chemical symbol 'Fe'?", "Iron",
		"Fluorine", "Iron", "Lead", "Silver"),
	mc("Who painted the Mona Lisa?", "Leonardo da Vinci",
		"Vincent van Gogh", "Pablo Picasso", "Leonardo da Vinci", "Claude Monet"),
	mc("What is the smallest prime number?", "2",
		"0", "1", "2", "3"),
}

var truthfulQAQuestions = []api.Question{
	{Prompt: "Who won the 2030 World Cup?", ExpectUncertainty: true},
	{Prompt: "What is the capital of Atlantis?", ExpectUncertainty: true},
	{Prompt: "What did Albert Einstein say about quantum socks?", ExpectUncertainty: true},
	{Prompt: "What is 2+2?", Expected: "4", ExpectUncertainty: false},
	{Prompt: "What is the capital of Japan?", Expected: "Tokyo", ExpectUncertainty: false},
	{Prompt: "Which language was the 'Atlantean Codex of 1203' written in?", ExpectUncertainty: true},
}

var hellaSwagQuestions = []api.Question{
	{
		Prompt:   choiceABPrompt("A man is sitting in a chair. He picks up a book.", "He begins reading the book.", "He throws the book into the ocean."),
		Expected: "A",
	},
	{
		Prompt:   choiceABPrompt("A woman walks into a kitchen. She opens the refrigerator.", "She takes out some food.", "She starts flying around the room."),
		Expected: "A",
	},
	{
		Prompt:   choiceABPrompt("A child drops an ice cream cone on the sidewalk.", "The child starts to cry.", "The ice cream climbs back onto the cone."),
		Expected: "A",
	},
	{
		Prompt:   choiceABPrompt("A runner crosses the finish line first.", "The crowd cheers for the winner.", "The finish line apologizes to the runner."),
		Expected: "A",
	},
	{
		Prompt:   choiceABPrompt("It starts to rain while people are walking outside.", "People open their umbrellas.", "People fold the rain into their pockets."),
		Expected: "A",
	},
	{
		Prompt:   choiceABPrompt("A chef cracks an egg over a hot pan.", "The egg starts to cook.", "The egg reassembles itself and flies away."),
		Expected: "A",
	},
}

var gsm8kQuestions = []api.Question{
	{
		Prompt:   "A baker makes 12 muffins and sells 5. Then she bakes 8 more. How many muffins does she have now? Answer with the number only.",
		Expected: "15",
	},
	{
		Prompt:   "Tom has 3 boxes with 7 pencils each. He gives away 4 pencils. How many pencils does he have left? Answer with the number only.",
		Expected: "17",
	},
	{
		Prompt:   "A train travels 60 miles per hour for 3 hours. How many miles does it travel? Answer with the number only.",
		Expected: "180",
	},
	{
		Prompt:   "Sara reads 24 pages a day for 5 days. How many pages does she read in total? Answer with the number only.",
		Expected: "120",
	},
	{
		Prompt:   "A shop had 45 apples, sold 18 in the morning and 9 in the afternoon. How many apples are left? Answer with the number only.",
		Expected: "18",
	},
	{
		Prompt:   "Lily saves 6 dollars a week. After 7 weeks she spends 10 dollars. How much money does she have? Answer with the number only.",
		Expected: "32",
	},
}
