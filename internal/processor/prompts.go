package processor

// 三个操作的提示词模板
// 简历语料与模型输出字段都是英文，模板保持英文原样；
// 每个模板都要求模型只返回指定形状的JSON，坏输出由修复阶段兜底

const analyzePromptTemplate = `You are a precise resume parser. Extract ONLY the following information from the resume text in JSON format:
{
  "name": "Full name of the person",
  "email": "Email address",
  "phone": "Phone number",
  "education": [
    {
      "degree": "Exact degree name (e.g., B.Tech, M.Sc)",
      "institution": "Full institution name",
      "year": "Year of completion or graduation"
    }
  ],
  "experience": [
    {
      "company": "Company name",
      "position": "Job title/position",
      "duration": "Duration (e.g., '2020-2022' or '2 years')",
      "description": "Key responsibilities and achievements"
    }
  ],
  "skills": ["List of technical and soft skills"]
}

Rules:
1. Extract ONLY the information that is explicitly stated in the resume
2. Do not make assumptions or add information that is not present
3. For experience, only include roles that are clearly mentioned
4. For education, only include degrees that are explicitly stated
5. For skills, only list skills that are specifically mentioned
6. If any field is not found in the resume, use an empty string or empty array
7. Do not add any additional fields or information

Resume text: %s`

const recommendPromptTemplate = `You are an AI job matching expert. Based on the candidate's resume, suggest 5 most suitable job positions.

For each job recommendation, provide:
1. A specific job title that matches their experience and skills
2. A match score (0-100) based on:
   - Skills alignment
   - Experience relevance
   - Education requirements
   - Industry fit
3. A detailed reasoning for the match
4. Required skills they have
5. Missing skills they need to develop

Return the response in this exact JSON format:
{
  "recommendations": [
    {
      "jobTitle": "Specific job title",
      "matchScore": number between 0-100,
      "reasoning": "Detailed explanation of why this job is a good match",
      "requiredSkills": ["List of required skills they have"],
      "missingSkills": ["List of important skills they need to develop"]
    }
  ]
}

Rules:
1. Only recommend jobs that are realistic based on their experience
2. Be specific with job titles (e.g., "Frontend Developer" not just "Developer")
3. Provide detailed reasoning for each match
4. List only relevant required and missing skills
5. Match scores should reflect actual fit, not just wishful thinking

Resume Analysis: %s`

const scorePromptTemplate = `You are a precise job matching analyzer. Calculate an accurate threshold score for the candidate's fit for the position of %s.

Analyze the candidate's skills and experience in detail, considering:
1. Skills Match (0-30 points):
   - Count exact matches of required technical skills
   - Consider skill proficiency levels if mentioned
   - Weight core skills more heavily than supplementary skills
   - Calculate as: (matching skills / total required skills) * 30

2. Experience Relevance (0-30 points):
   - Evaluate duration and recency of relevant experience
   - Consider project complexity and scope
   - Weight experience that directly relates to the job title
   - Calculate as: (relevant experience months / expected experience months) * 30

3. Education Alignment (0-20 points):
   - Match degree requirements with candidate's education
   - Consider field of study relevance
   - Weight recent education more heavily
   - Calculate as: (education match score / 100) * 20

4. Overall Potential (0-20 points):
   - Evaluate learning curve and adaptability
   - Consider career progression
   - Assess complementary skills
   - Calculate as: (potential score / 100) * 20

You must respond with ONLY a valid JSON object in this exact format:
{
  "overallScore": number,
  "selectionPercentage": number,
  "rejectionPercentage": number,
  "barGraphMetrics": {
    "skillMatch": number,
    "experienceMatch": number,
    "educationMatch": number,
    "overallMatch": number
  },
  "detailedAnalysis": "string"
}

Rules:
1. Be extremely precise with skill matching
2. Selection percentage should be based on overall score
3. Rejection percentage should be (100 - selection percentage)
4. All percentages should be between 0-100
5. Bar graph metrics should be percentages (0-100)
6. Provide specific examples in the analysis

Resume Analysis: %s`
